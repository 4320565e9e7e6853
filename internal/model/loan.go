package model

import "time"

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanRejected  LoanStatus = "rejected"
	LoanCancelled LoanStatus = "cancelled"
)

// BlockingStatuses are the statuses whose date ranges may not overlap for
// the same item.
var BlockingStatuses = []LoanStatus{LoanApproved, LoanActive}

// loanTransitions maps a status to the statuses it may move to.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanPending:  {LoanApproved, LoanRejected, LoanCancelled},
	LoanApproved: {LoanActive, LoanCancelled},
	LoanActive:   {LoanCompleted},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to LoanStatus) bool {
	for _, s := range loanTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Loan mirrors the `loans` table.  LenderID and DailyRate are copied from the
// item when the loan is created.
type Loan struct {
	ID          string     `db:"id" json:"id"`
	ItemID      string     `db:"item_id" json:"itemId"`
	BorrowerID  string     `db:"borrower_id" json:"borrowerId"`
	LenderID    string     `db:"lender_id" json:"lenderId"`
	StartDate   time.Time  `db:"start_date" json:"startDate"`
	EndDate     time.Time  `db:"end_date" json:"endDate"`
	DailyRate   float64    `db:"daily_rate" json:"dailyRate"`
	TotalAmount float64    `db:"total_amount" json:"totalAmount"`
	Status      LoanStatus `db:"status" json:"status"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// LoanRequest is what a borrower supplies.  The lender is derived.
type LoanRequest struct {
	ItemID    string
	StartDate time.Time
	EndDate   time.Time
	Notes     *string
}

// LoanCreate is the full insert shape assembled by the repository.
type LoanCreate struct {
	ItemID      string
	BorrowerID  string
	LenderID    string
	StartDate   time.Time
	EndDate     time.Time
	DailyRate   float64
	TotalAmount float64
	Status      LoanStatus
	Notes       *string
}

// LoanDays counts the calendar days covered by [start, end], both inclusive.
func LoanDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// Overlaps reports whether [s1, e1] and [s2, e2] share a day, using the
// same three cases as the booking conflict query: the first range contains
// the start of the second, contains its end, or lies inside it.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	within := func(t, lo, hi time.Time) bool { return !t.Before(lo) && !t.After(hi) }
	return within(s2, s1, e1) || within(e2, s1, e1) || (!s2.After(s1) && !e2.Before(e1))
}

// LoanItemSummary is the item part of a loan detail read.
type LoanItemSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	DailyRate    float64 `json:"dailyRate"`
	PrimaryImage *string `json:"primaryImage,omitempty"`
}

type LoanWithDetails struct {
	Loan
	Item     LoanItemSummary `json:"item"`
	Borrower UserSummary     `json:"borrower"`
	Lender   UserSummary     `json:"lender"`
}

// LoanListFilter narrows FindByUser.  Role is "borrower", "lender" or empty
// for both sides.
type LoanListFilter struct {
	Role   string
	Status LoanStatus
}

type LoanStats struct {
	TotalAsBorrower int     `db:"total_as_borrower" json:"totalAsBorrower"`
	TotalAsLender   int     `db:"total_as_lender" json:"totalAsLender"`
	PendingRequests int     `db:"pending_requests" json:"pendingRequests"`
	ActiveLoans     int     `db:"active_loans" json:"activeLoans"`
	CompletedLoans  int     `db:"completed_loans" json:"completedLoans"`
	TotalEarned     float64 `db:"total_earned" json:"totalEarned"`
	TotalSpent      float64 `db:"total_spent" json:"totalSpent"`
}
