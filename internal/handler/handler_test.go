package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/queue"
	"github.com/emprestaae/empresta-api/internal/repository"
	"github.com/emprestaae/empresta-api/internal/utils"
)

// ----- fixtures -----

var (
	stamp    = time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC)
	itemCols = []string{"id", "owner_id", "category_id", "title", "description", "item_condition",
		"estimated_value", "daily_rate", "latitude", "longitude", "address", "is_available", "is_active",
		"created_at", "updated_at"}
	loanCols = []string{"id", "item_id", "borrower_id", "lender_id", "start_date", "end_date",
		"daily_rate", "total_amount", "status", "notes", "created_at", "updated_at"}
	userCols = []string{"id", "email", "password_hash", "first_name", "last_name", "phone", "avatar_url",
		"bio", "latitude", "longitude", "address", "is_verified", "is_active", "created_at", "updated_at"}
)

func day(n int) time.Time { return time.Date(2024, time.March, n, 0, 0, 0, 0, time.UTC) }

func itemRows(id, owner string) *sqlmock.Rows {
	return sqlmock.NewRows(itemCols).
		AddRow(id, owner, "c1", "Drill", "Cordless", "good", nil, 10.0, nil, nil, nil, true, true, stamp, stamp)
}

func loanRows(id, status string, start, end time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(loanCols).
		AddRow(id, "item1", "u1", "owner1", start, end, 10.0, 30.0, status, nil, stamp, stamp)
}

type tokensAsIDs struct{}

// Parse treats the bearer token as the user id.
func (tokensAsIDs) Parse(raw string) (string, error) { return raw, nil }

type recordedEvents struct{ got []queue.Event }

func (r *recordedEvents) Publish(_ context.Context, ev queue.Event) { r.got = append(r.got, ev) }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	return e
}

func newExecutor(t *testing.T) (*repository.Executor, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return repository.NewExecutor(sqlx.NewDb(raw, "mysql"), nil), mock
}

func call(e *echo.Echo, method, path, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ----- error mapping -----

func TestFail(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{repository.ErrItemNotFound, http.StatusNotFound},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrConflictingLoan, http.StatusConflict},
		{repository.ErrInvalidTransition, http.StatusConflict},
		{repository.ErrOwnItem, http.StatusUnprocessableEntity},
		{repository.ErrInvalidRating, http.StatusBadRequest},
	}
	for _, tc := range cases {
		var he *echo.HTTPError
		require.True(t, errors.As(fail(tc.err), &he), tc.err.Error())
		assert.Equal(t, tc.code, he.Code, tc.err.Error())
	}

	boom := errors.New("connection reset")
	assert.Same(t, boom, fail(boom))
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := newTestEcho()
	e.GET("/boom", func(echo.Context) error { return errors.New("dial tcp: refused") })

	rec := call(e, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])
}

// ----- params -----

func TestPageRequest(t *testing.T) {
	e := echo.New()
	ctx := func(q string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q, nil), httptest.NewRecorder())
	}
	assert.Equal(t, repository.PageRequest{Page: 1, Limit: 20}, pageRequest(ctx("")))
	assert.Equal(t, repository.PageRequest{Page: 3, Limit: 5}, pageRequest(ctx("page=3&limit=5")))
	assert.Equal(t, repository.PageRequest{Page: 1, Limit: 100}, pageRequest(ctx("page=-2&limit=1000")))
}

func TestSearchFromQuery(t *testing.T) {
	e := echo.New()
	ctx := func(q string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q, nil), httptest.NewRecorder())
	}

	s, err := searchFromQuery(ctx("q=+drill+&category=c1&available=true&minRate=5&lat=-23.5&lng=-46.6&radius=10"))
	require.NoError(t, err)
	assert.Equal(t, "drill", s.Search)
	assert.Equal(t, "c1", s.CategoryID)
	require.NotNil(t, s.IsAvailable)
	assert.True(t, *s.IsAvailable)
	assert.Equal(t, 5.0, *s.MinRate)
	assert.Equal(t, -23.5, *s.Latitude)
	assert.Equal(t, 10.0, *s.RadiusKm)

	for _, bad := range []string{"lat=1", "radius=5", "lat=1&lng=2&radius=0", "minRate=abc", "lat=91&lng=0"} {
		_, err := searchFromQuery(ctx(bad))
		assert.Error(t, err, bad)
	}
}

// ----- auth -----

func TestAuthHandler_LoginValidation(t *testing.T) {
	e := newTestEcho()
	h := &AuthHandler{}
	e.POST("/login", h.Login)

	rec := call(e, http.MethodPost, "/login", `{"email":"not-an-email"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	fields := body["fields"].(map[string]any)
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "required", fields["password"])
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	ex, mock := newExecutor(t)
	hash, err := utils.HashPassword("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM users WHERE email = \? LIMIT 1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "ana@example.com", hash, "Ana", "Silva",
			nil, nil, nil, nil, nil, nil, false, true, stamp, stamp))

	e := newTestEcho()
	h := NewAuthHandler(repository.NewUserRepo(ex), nil, nil, bcrypt.MinCost)
	e.POST("/login", h.Login)

	rec := call(e, http.MethodPost, "/login", `{"email":"Ana@Example.com","password":"wrong-horse"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode(t, rec)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ----- loans -----

func newLoanTestServer(t *testing.T) (*echo.Echo, sqlmock.Sqlmock, *recordedEvents) {
	ex, mock := newExecutor(t)
	events := &recordedEvents{}
	h := NewLoanHandler(repository.NewLoanRepo(ex), repository.NewItemRepo(ex), events)
	h.now = func() time.Time { return day(1) }

	e := newTestEcho()
	auth := middleware.JWTAuth(tokensAsIDs{})
	e.POST("/loans", h.Create, auth)
	e.GET("/items/:id/availability", h.Availability, auth)
	return e, mock, events
}

func TestLoanHandler_CreatePublishesEvent(t *testing.T) {
	e, mock, events := newLoanTestServer(t)

	mock.ExpectQuery(`FROM items WHERE id = \?`).WithArgs("item1").WillReturnRows(itemRows("item1", "owner1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE item_id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO loans`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM loans WHERE id = \?`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(loanRows("loan1", "pending", day(10), day(12)))

	rec := call(e, http.MethodPost, "/loans",
		`{"itemId":"item1","startDate":"2024-03-10","endDate":"2024-03-12"}`, "u1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "pending", decode(t, rec)["status"])

	require.Len(t, events.got, 1)
	ev := events.got[0]
	assert.Equal(t, queue.LoanRequested, ev.Type)
	assert.Equal(t, "u1", ev.ActorID)
	assert.Equal(t, "owner1", ev.RecipientID)
	assert.Equal(t, "2024-03-10", ev.StartDate)
	assert.Equal(t, 30.0, ev.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanHandler_CreateConflict(t *testing.T) {
	e, mock, events := newLoanTestServer(t)

	mock.ExpectQuery(`FROM items WHERE id = \?`).WithArgs("item1").WillReturnRows(itemRows("item1", "owner1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE item_id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rec := call(e, http.MethodPost, "/loans",
		`{"itemId":"item1","startDate":"2024-03-10","endDate":"2024-03-12"}`, "u1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, repository.ErrConflictingLoan.Error(), decode(t, rec)["error"])
	assert.Empty(t, events.got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanHandler_CreateRejectsBadInput(t *testing.T) {
	e, mock, _ := newLoanTestServer(t)

	past := call(e, http.MethodPost, "/loans", `{"itemId":"item1","startDate":"2024-02-10","endDate":"2024-02-12"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, past.Code)

	badDate := call(e, http.MethodPost, "/loans", `{"itemId":"item1","startDate":"10/03/2024","endDate":"2024-03-12"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, badDate.Code)

	anon := call(e, http.MethodPost, "/loans", `{"itemId":"item1","startDate":"2024-03-10","endDate":"2024-03-12"}`, "")
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanHandler_Availability(t *testing.T) {
	e, mock, _ := newLoanTestServer(t)

	expect := func() {
		mock.ExpectQuery(`FROM items WHERE id = \?`).WithArgs("item1").WillReturnRows(itemRows("item1", "owner1"))
		mock.ExpectQuery(`FROM loans WHERE item_id = \? AND status IN \('approved', 'active'\) AND end_date >= \?`).
			WithArgs("item1", day(5)).
			WillReturnRows(loanRows("loan1", "approved", day(10), day(12)))
	}

	expect()
	rec := call(e, http.MethodGet, "/items/item1/availability?from=2024-03-05&start=2024-03-11&end=2024-03-13", "", "u2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, false, body["available"])
	blocked := body["blocked"].([]any)
	require.Len(t, blocked, 1)
	assert.Equal(t, "2024-03-10", blocked[0].(map[string]any)["startDate"])

	expect()
	rec = call(e, http.MethodGet, "/items/item1/availability?from=2024-03-05&start=2024-03-13&end=2024-03-15", "", "u2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["available"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanHandler_AvailabilityBeforeToday(t *testing.T) {
	e, mock, _ := newLoanTestServer(t)
	feb := func(n int) time.Time { return time.Date(2024, time.February, n, 0, 0, 0, 0, time.UTC) }

	mock.ExpectQuery(`FROM items WHERE id = \?`).WithArgs("item1").WillReturnRows(itemRows("item1", "owner1"))
	mock.ExpectQuery(`FROM loans WHERE item_id = \? AND status IN .+ AND end_date >= \?`).
		WithArgs("item1", feb(27)).
		WillReturnRows(loanRows("loan1", "active", feb(26), feb(28)))

	rec := call(e, http.MethodGet, "/items/item1/availability?start=2024-02-27&end=2024-02-29", "", "u2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode(t, rec)["available"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ----- items, messages, reviews -----

func TestItemHandler_GetMissing(t *testing.T) {
	ex, mock := newExecutor(t)
	h := NewItemHandler(repository.NewItemRepo(ex), repository.NewUserRepo(ex), repository.NewCategoryRepo(ex))
	e := newTestEcho()
	e.GET("/items/:id", h.Get, middleware.OptionalJWT(tokensAsIDs{}))

	mock.ExpectQuery(`WHERE i.id = \? GROUP BY i.id`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := call(e, http.MethodGet, "/items/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item not found", decode(t, rec)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageHandler_SendToSelf(t *testing.T) {
	ex, mock := newExecutor(t)
	h := NewMessageHandler(repository.NewMessageRepo(ex), repository.NewUserRepo(ex), nil)
	e := newTestEcho()
	e.POST("/messages", h.Send, middleware.JWTAuth(tokensAsIDs{}))

	rec := call(e, http.MethodPost, "/messages", `{"recipientId":"u1","content":"hi"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageHandler_MarkReadNeedsTarget(t *testing.T) {
	h := NewMessageHandler(nil, nil, nil)
	e := newTestEcho()
	e.PUT("/messages/read", h.MarkRead, middleware.JWTAuth(tokensAsIDs{}))

	rec := call(e, http.MethodPut, "/messages/read", `{}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewHandler_RatingOutOfRange(t *testing.T) {
	h := NewReviewHandler(nil)
	e := newTestEcho()
	e.POST("/reviews", h.Create, middleware.JWTAuth(tokensAsIDs{}))

	rec := call(e, http.MethodPost, "/reviews",
		`{"loanId":"l1","reviewedId":"u2","rating":6,"type":"lender_review"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "max=5", decode(t, rec)["fields"].(map[string]any)["rating"])
}

type downDB struct{ err error }

func (d downDB) PingContext(context.Context) error { return d.err }

func TestHealth(t *testing.T) {
	e := newTestEcho()
	e.GET("/up", Health(downDB{}))
	e.GET("/down", Health(downDB{err: errors.New("gone")}))

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/up", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, call(e, http.MethodGet, "/down", "", "").Code)
}
