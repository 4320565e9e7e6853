package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/repository"
)

type ReviewHandler struct {
	Reviews *repository.ReviewRepo
}

func NewReviewHandler(r *repository.ReviewRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r}
}

type createReviewReq struct {
	LoanID     string  `json:"loanId" validate:"required"`
	ReviewedID string  `json:"reviewedId" validate:"required"`
	Rating     int     `json:"rating" validate:"required,min=1,max=5"`
	Comment    *string `json:"comment" validate:"omitempty,max=2000"`
	Type       string  `json:"type" validate:"required,oneof=borrower_review lender_review"`
}

// Create reviews the other party of a completed loan.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req createReviewReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rev, err := h.Reviews.CreateReview(ctx, middleware.UserID(c), model.ReviewRequest{
		LoanID:     req.LoanID,
		ReviewedID: req.ReviewedID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Type:       model.ReviewType(req.Type),
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, rev)
}

func (h *ReviewHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	rev, err := h.Reviews.FindWithDetails(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if rev == nil {
		return notFound("review")
	}
	return c.JSON(http.StatusOK, rev)
}

// ForUser pages through the reviews a user received, newest first.
func (h *ReviewHandler) ForUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	page, err := h.Reviews.FindByReviewedUser(ctx, c.Param("id"), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Rating returns the average and star distribution of a user's reviews.
func (h *ReviewHandler) Rating(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	sum, err := h.Reviews.GetRatingSummary(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}
