package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/queue"
	"github.com/emprestaae/empresta-api/internal/repository"
)

// LoanHandler serves loan requests and their lifecycle.
type LoanHandler struct {
	Loans  *repository.LoanRepo
	Items  *repository.ItemRepo
	Events Events
	now    func() time.Time
}

func NewLoanHandler(l *repository.LoanRepo, i *repository.ItemRepo, ev Events) *LoanHandler {
	return &LoanHandler{Loans: l, Items: i, Events: eventsOrNop(ev), now: time.Now}
}

type createLoanReq struct {
	ItemID    string  `json:"itemId" validate:"required"`
	StartDate string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`
}

type statusReq struct {
	Status string `json:"status" validate:"required,oneof=approved rejected active completed cancelled"`
}

type blockedRange struct {
	LoanID    string           `json:"loanId"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
	Status    model.LoanStatus `json:"status"`
}

type availabilityResp struct {
	ItemID    string         `json:"itemId"`
	Blocked   []blockedRange `json:"blocked"`
	Available *bool          `json:"available,omitempty"`
}

// Create requests a loan of an item for an inclusive date range.
func (h *LoanHandler) Create(c echo.Context) error {
	var req createLoanReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	today := h.now().UTC().Truncate(24 * time.Hour)
	if start.Before(today) {
		return badRequest("startDate is in the past")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	uid := middleware.UserID(c)
	loan, err := h.Loans.CreateLoan(ctx, uid, model.LoanRequest{
		ItemID:    req.ItemID,
		StartDate: start,
		EndDate:   end,
		Notes:     req.Notes,
	})
	if err != nil {
		return fail(err)
	}
	h.Events.Publish(ctx, queue.Event{
		Type:        queue.LoanRequested,
		ActorID:     uid,
		RecipientID: loan.LenderID,
		LoanID:      loan.ID,
		ItemID:      loan.ItemID,
		Status:      string(loan.Status),
		StartDate:   loan.StartDate.Format(dateLayout),
		EndDate:     loan.EndDate.Format(dateLayout),
		TotalAmount: loan.TotalAmount,
	})
	return c.JSON(http.StatusCreated, loan)
}

// List pages through the caller's loans, optionally by ?role and ?status.
func (h *LoanHandler) List(c echo.Context) error {
	f := model.LoanListFilter{Role: c.QueryParam("role"), Status: model.LoanStatus(c.QueryParam("status"))}
	switch f.Role {
	case "", "borrower", "lender":
	default:
		return badRequest("role must be borrower or lender")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	page, err := h.Loans.FindByUser(ctx, middleware.UserID(c), f, pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get returns a loan with item and both parties.  Only the parties may see
// it.
func (h *LoanHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	loan, err := h.Loans.FindWithDetails(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if loan == nil {
		return notFound("loan")
	}
	uid := middleware.UserID(c)
	if uid != loan.BorrowerID && uid != loan.LenderID {
		return fail(repository.ErrNotLoanParticipant)
	}
	return c.JSON(http.StatusOK, loan)
}

// UpdateStatus moves a loan along its lifecycle.
func (h *LoanHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	uid := middleware.UserID(c)
	loan, err := h.Loans.UpdateStatus(ctx, c.Param("id"), uid, model.LoanStatus(req.Status))
	if err != nil {
		return fail(err)
	}
	other := loan.LenderID
	if uid == loan.LenderID {
		other = loan.BorrowerID
	}
	h.Events.Publish(ctx, queue.Event{
		Type:        queue.LoanStatusChanged,
		ActorID:     uid,
		RecipientID: other,
		LoanID:      loan.ID,
		ItemID:      loan.ItemID,
		Status:      string(loan.Status),
	})
	return c.JSON(http.StatusOK, loan)
}

// Stats returns the caller's loan rollup.
func (h *LoanHandler) Stats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	stats, err := h.Loans.GetStats(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Availability lists the booked ranges of an item from ?from (default
// today).  With ?start and ?end it also says whether that range is free.
func (h *LoanHandler) Availability(c echo.Context) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	start, err := queryDate(c, "start")
	if err != nil {
		return err
	}
	end, err := queryDate(c, "end")
	if err != nil {
		return err
	}
	if (start == nil) != (end == nil) {
		return badRequest("start and end go together")
	}
	if start != nil && end.Before(*start) {
		return fail(repository.ErrInvalidDateRange)
	}
	since := h.now().UTC()
	if from != nil {
		since = *from
	}
	// blocking loans that end before since can still overlap [start, end]
	if start != nil && start.Before(since) {
		since = *start
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	it, err := h.Items.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if it == nil || !it.IsActive {
		return notFound("item")
	}
	loans, err := h.Loans.FindBlocking(ctx, id, since)
	if err != nil {
		return err
	}

	resp := availabilityResp{ItemID: id, Blocked: make([]blockedRange, 0, len(loans))}
	for _, l := range loans {
		resp.Blocked = append(resp.Blocked, blockedRange{
			LoanID:    l.ID,
			StartDate: l.StartDate.Format(dateLayout),
			EndDate:   l.EndDate.Format(dateLayout),
			Status:    l.Status,
		})
	}
	if start != nil {
		free := it.IsAvailable
		for _, l := range loans {
			if model.Overlaps(*start, *end, l.StartDate, l.EndDate) {
				free = false
				break
			}
		}
		resp.Available = &free
	}
	return c.JSON(http.StatusOK, resp)
}
