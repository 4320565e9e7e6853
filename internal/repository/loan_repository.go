package repository

import (
	"context"
	"strings"
	"time"

	"github.com/emprestaae/empresta-api/internal/model"
)

const loanColumns = "id, item_id, borrower_id, lender_id, start_date, end_date, daily_rate, total_amount, " +
	"status, notes, created_at, updated_at"

var loanTable = Table{
	Name:       "loans",
	Columns:    loanColumns,
	Filterable: []string{"item_id", "borrower_id", "lender_id", "status"},
}

// LoanRepo manages loan requests and their lifecycle.
type LoanRepo struct{ *Base[model.Loan] }

func NewLoanRepo(ex *Executor) *LoanRepo { return &LoanRepo{NewBase[model.Loan](ex, loanTable)} }

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CreateLoan validates a borrower's request against the item and existing
// bookings, then stores it as pending.  Every check runs before the insert.
func (r *LoanRepo) CreateLoan(ctx context.Context, borrowerID string, req model.LoanRequest) (*model.Loan, error) {
	item, err := Get[model.Item](ctx, r.ex, "SELECT "+itemColumns+" FROM items WHERE id = ?", req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	if !item.IsActive || !item.IsAvailable {
		return nil, ErrItemUnavailable
	}
	if item.OwnerID == borrowerID {
		return nil, ErrOwnItem
	}
	start, end := dateOnly(req.StartDate), dateOnly(req.EndDate)
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	conflict, err := r.HasConflictingLoans(ctx, item.ID, start, end, "")
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrConflictingLoan
	}

	in := model.LoanCreate{
		ItemID:      item.ID,
		BorrowerID:  borrowerID,
		LenderID:    item.OwnerID,
		StartDate:   start,
		EndDate:     end,
		DailyRate:   item.DailyRate,
		TotalAmount: float64(model.LoanDays(start, end)) * item.DailyRate,
		Status:      model.LoanPending,
		Notes:       req.Notes,
	}
	s := Set{
		{Column: "item_id", Value: in.ItemID},
		{Column: "borrower_id", Value: in.BorrowerID},
		{Column: "lender_id", Value: in.LenderID},
		{Column: "start_date", Value: in.StartDate},
		{Column: "end_date", Value: in.EndDate},
		{Column: "daily_rate", Value: in.DailyRate},
		{Column: "total_amount", Value: in.TotalAmount},
		{Column: "status", Value: string(in.Status)},
	}
	return r.Base.Create(ctx, Set(setIf(s, "notes", in.Notes)))
}

// blockingIn is the IN list of model.BlockingStatuses.  The values are
// package constants, never request input.
var blockingIn = func() string {
	quoted := make([]string, len(model.BlockingStatuses))
	for i, st := range model.BlockingStatuses {
		quoted[i] = "'" + string(st) + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}()

var conflictSQL = "SELECT COUNT(*) FROM loans WHERE item_id = ? AND status IN " + blockingIn +
	" AND ((start_date BETWEEN ? AND ?) OR (end_date BETWEEN ? AND ?) OR (start_date <= ? AND end_date >= ?))"

// HasConflictingLoans reports whether an approved or active loan of the
// item overlaps [start, end].  excludeID, when set, skips that loan.
func (r *LoanRepo) HasConflictingLoans(ctx context.Context, itemID string, start, end time.Time, excludeID string) (bool, error) {
	start, end = dateOnly(start), dateOnly(end)
	q := conflictSQL
	args := []any{itemID, start, end, start, end, start, end}
	if excludeID != "" {
		q += " AND id <> ?"
		args = append(args, excludeID)
	}
	n, err := r.ex.Count(ctx, q, args...)
	return n > 0, err
}

// FindBlocking lists the approved and active loans of an item that end on
// or after from, in date order.
func (r *LoanRepo) FindBlocking(ctx context.Context, itemID string, from time.Time) ([]model.Loan, error) {
	return Select[model.Loan](ctx, r.ex, r.selectFrom()+
		" WHERE item_id = ? AND status IN "+blockingIn+" AND end_date >= ? ORDER BY start_date ASC",
		itemID, dateOnly(from))
}

type loanDetailRow struct {
	model.Loan
	ItemTitle         string  `db:"item_title"`
	ItemDailyRate     float64 `db:"item_daily_rate"`
	ItemPrimaryImage  *string `db:"item_primary_image"`
	BorrowerFirstName string  `db:"borrower_first_name"`
	BorrowerLastName  string  `db:"borrower_last_name"`
	BorrowerAvatarURL *string `db:"borrower_avatar_url"`
	BorrowerVerified  bool    `db:"borrower_is_verified"`
	LenderFirstName   string  `db:"lender_first_name"`
	LenderLastName    string  `db:"lender_last_name"`
	LenderAvatarURL   *string `db:"lender_avatar_url"`
	LenderVerified    bool    `db:"lender_is_verified"`
}

func (row loanDetailRow) details() model.LoanWithDetails {
	return model.LoanWithDetails{
		Loan: row.Loan,
		Item: model.LoanItemSummary{
			ID:           row.ItemID,
			Title:        row.ItemTitle,
			DailyRate:    row.ItemDailyRate,
			PrimaryImage: row.ItemPrimaryImage,
		},
		Borrower: model.UserSummary{
			ID:         row.BorrowerID,
			FirstName:  row.BorrowerFirstName,
			LastName:   row.BorrowerLastName,
			AvatarURL:  row.BorrowerAvatarURL,
			IsVerified: row.BorrowerVerified,
		},
		Lender: model.UserSummary{
			ID:         row.LenderID,
			FirstName:  row.LenderFirstName,
			LastName:   row.LenderLastName,
			AvatarURL:  row.LenderAvatarURL,
			IsVerified: row.LenderVerified,
		},
	}
}

var loanDetailSelect = "SELECT " + prefixed("l", loanColumns) +
	", it.title AS item_title, it.daily_rate AS item_daily_rate" +
	", (SELECT im.url FROM item_images im WHERE im.item_id = it.id" +
	" ORDER BY im.is_primary DESC, im.sort_order ASC LIMIT 1) AS item_primary_image" +
	", b.first_name AS borrower_first_name, b.last_name AS borrower_last_name" +
	", b.avatar_url AS borrower_avatar_url, b.is_verified AS borrower_is_verified" +
	", le.first_name AS lender_first_name, le.last_name AS lender_last_name" +
	", le.avatar_url AS lender_avatar_url, le.is_verified AS lender_is_verified" +
	" FROM loans l" +
	" JOIN items it ON it.id = l.item_id" +
	" JOIN users b ON b.id = l.borrower_id" +
	" JOIN users le ON le.id = l.lender_id"

// FindWithDetails returns the loan with its item and both parties, or nil.
func (r *LoanRepo) FindWithDetails(ctx context.Context, id string) (*model.LoanWithDetails, error) {
	row, err := Get[loanDetailRow](ctx, r.ex, loanDetailSelect+" WHERE l.id = ?", id)
	if err != nil || row == nil {
		return nil, err
	}
	out := row.details()
	return &out, nil
}

// FindByUser pages through the loans where the user is borrower, lender or
// either, newest first.
func (r *LoanRepo) FindByUser(ctx context.Context, userID string, f model.LoanListFilter, req PageRequest) (Page[model.LoanWithDetails], error) {
	w := &where{}
	switch f.Role {
	case "borrower":
		w.add("l.borrower_id = ?", userID)
	case "lender":
		w.add("l.lender_id = ?", userID)
	default:
		w.add("(l.borrower_id = ? OR l.lender_id = ?)", userID, userID)
	}
	if f.Status != "" {
		w.add("l.status = ?", string(f.Status))
	}

	total, err := r.ex.Count(ctx, "SELECT COUNT(*) FROM loans l"+w.sql(), w.args...)
	if err != nil {
		return Page[model.LoanWithDetails]{}, err
	}
	args := append(append([]any{}, w.args...), req.Limit, req.Offset())
	rows, err := Select[loanDetailRow](ctx, r.ex, loanDetailSelect+w.sql()+" ORDER BY l.created_at DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return Page[model.LoanWithDetails]{}, err
	}
	data := make([]model.LoanWithDetails, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.details())
	}
	return NewPage(data, total, req), nil
}

// lenderOnly are the statuses only the lender may move a loan to.
var lenderOnly = map[model.LoanStatus]bool{
	model.LoanApproved:  true,
	model.LoanRejected:  true,
	model.LoanActive:    true,
	model.LoanCompleted: true,
}

// UpdateStatus moves the loan to status on behalf of actorID.  The lender
// drives approval, hand-over and completion; either party may cancel.
// Approving re-checks the item's calendar.  The update is conditional on the
// status read, so a concurrent change yields ErrInvalidTransition.
func (r *LoanRepo) UpdateStatus(ctx context.Context, loanID, actorID string, status model.LoanStatus) (*model.Loan, error) {
	loan, err := r.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	if actorID != loan.BorrowerID && actorID != loan.LenderID {
		return nil, ErrNotLoanParticipant
	}
	if !model.CanTransition(loan.Status, status) {
		return nil, ErrInvalidTransition
	}
	if lenderOnly[status] && actorID != loan.LenderID {
		return nil, ErrForbidden
	}
	if status == model.LoanApproved {
		conflict, err := r.HasConflictingLoans(ctx, loan.ItemID, loan.StartDate, loan.EndDate, loan.ID)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, ErrConflictingLoan
		}
	}

	res, err := r.ex.Exec(ctx, "UPDATE loans SET status = ? WHERE id = ? AND status = ?",
		string(status), loan.ID, string(loan.Status))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrInvalidTransition
	}
	return r.FindByID(ctx, loan.ID)
}

const loanStatsSQL = `SELECT
	COUNT(CASE WHEN borrower_id = ? THEN 1 END) AS total_as_borrower,
	COUNT(CASE WHEN lender_id = ? THEN 1 END) AS total_as_lender,
	COUNT(CASE WHEN lender_id = ? AND status = 'pending' THEN 1 END) AS pending_requests,
	COUNT(CASE WHEN status = 'active' THEN 1 END) AS active_loans,
	COUNT(CASE WHEN status = 'completed' THEN 1 END) AS completed_loans,
	COALESCE(SUM(CASE WHEN lender_id = ? AND status = 'completed' THEN total_amount END), 0) AS total_earned,
	COALESCE(SUM(CASE WHEN borrower_id = ? AND status = 'completed' THEN total_amount END), 0) AS total_spent
FROM loans
WHERE borrower_id = ? OR lender_id = ?`

// GetStats summarises the user's loans on both sides.  No loans gives zeros.
func (r *LoanRepo) GetStats(ctx context.Context, userID string) (model.LoanStats, error) {
	st, err := Get[model.LoanStats](ctx, r.ex, loanStatsSQL, userID, userID, userID, userID, userID, userID, userID)
	if err != nil || st == nil {
		return model.LoanStats{}, err
	}
	return *st, nil
}
