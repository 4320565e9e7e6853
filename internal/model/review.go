package model

import "time"

// ReviewType tells which side of the loan is being reviewed.
type ReviewType string

const (
	BorrowerReview ReviewType = "borrower_review"
	LenderReview   ReviewType = "lender_review"
)

// Review mirrors the `reviews` table.  At most one review exists per
// (loan, reviewer, type).
type Review struct {
	ID         string     `db:"id" json:"id"`
	LoanID     string     `db:"loan_id" json:"loanId"`
	ReviewerID string     `db:"reviewer_id" json:"reviewerId"`
	ReviewedID string     `db:"reviewed_id" json:"reviewedId"`
	Rating     int        `db:"rating" json:"rating"`
	Comment    *string    `db:"comment" json:"comment,omitempty"`
	Type       ReviewType `db:"review_type" json:"type"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

type ReviewRequest struct {
	LoanID     string
	ReviewedID string
	Rating     int
	Comment    *string
	Type       ReviewType
}

type ReviewPatch struct {
	Rating  *int
	Comment *string
}

type ReviewLoanSummary struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Item      ItemRef   `json:"item"`
}

type ReviewWithDetails struct {
	Review
	Reviewer UserSummary       `json:"reviewer"`
	Reviewed UserSummary       `json:"reviewed"`
	Loan     ReviewLoanSummary `json:"loan"`
}

// RatingSummary is zero-filled when the user has no reviews.  Distribution
// is indexed by star count (index 0 unused).
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
	Distribution  [6]int  `json:"distribution"`
}
