package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/emprestaae/empresta-api/internal/auth"
	"github.com/emprestaae/empresta-api/internal/repository"
)

// statusOf lists the domain errors the API reports to clients.
var statusOf = []struct {
	err    error
	status int
}{
	{repository.ErrItemNotFound, http.StatusNotFound},
	{repository.ErrLoanNotFound, http.StatusNotFound},
	{repository.ErrImageNotFound, http.StatusNotFound},
	{repository.ErrForbidden, http.StatusForbidden},
	{repository.ErrNotLoanParticipant, http.StatusForbidden},
	{repository.ErrEmailExists, http.StatusConflict},
	{repository.ErrConflict, http.StatusConflict},
	{repository.ErrConflictingLoan, http.StatusConflict},
	{repository.ErrDuplicateReview, http.StatusConflict},
	{repository.ErrInvalidTransition, http.StatusConflict},
	{repository.ErrItemUnavailable, http.StatusUnprocessableEntity},
	{repository.ErrOwnItem, http.StatusUnprocessableEntity},
	{repository.ErrLoanNotCompleted, http.StatusUnprocessableEntity},
	{repository.ErrInvalidDateRange, http.StatusBadRequest},
	{repository.ErrInvalidRating, http.StatusBadRequest},
	{repository.ErrSelfMessage, http.StatusBadRequest},
	{repository.ErrUnknownFilter, http.StatusBadRequest},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized},
}

// fail converts a domain error into an HTTP error.  Unknown errors pass
// through and end up as 500s in ErrorHandler.
func fail(err error) error {
	for _, m := range statusOf {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.status, m.err.Error())
		}
	}
	return err
}

func notFound(what string) error {
	return echo.NewHTTPError(http.StatusNotFound, what+" not found")
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// ErrorHandler renders every error as {"error": ...}.  Validation failures
// also list the offending fields.  Internal errors are logged and hidden.
func ErrorHandler(l *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		body := echo.Map{"error": "internal server error"}
		var he *echo.HTTPError
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &ve):
			status = http.StatusBadRequest
			body = echo.Map{"error": "validation failed", "fields": fieldErrors(ve)}
		case errors.As(err, &he):
			status = he.Code
			body = echo.Map{"error": he.Message}
		default:
			l.Error("unhandled error",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			l.Warn("write error response", zap.Error(err))
		}
	}
}
