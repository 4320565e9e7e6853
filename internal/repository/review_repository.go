package repository

import (
	"context"
	"time"

	"github.com/emprestaae/empresta-api/internal/model"
)

const reviewColumns = "id, loan_id, reviewer_id, reviewed_id, rating, comment, review_type, created_at, updated_at"

var reviewTable = Table{
	Name:       "reviews",
	Columns:    reviewColumns,
	Filterable: []string{"loan_id", "reviewer_id", "reviewed_id", "review_type", "rating"},
}

// ReviewRepo stores the reviews left after completed loans.
type ReviewRepo struct{ *Base[model.Review] }

func NewReviewRepo(ex *Executor) *ReviewRepo {
	return &ReviewRepo{NewBase[model.Review](ex, reviewTable)}
}

// CreateReview records reviewerID's review of the other party of a
// completed loan.  Each reviewer may leave one review per loan and type.
func (r *ReviewRepo) CreateReview(ctx context.Context, reviewerID string, req model.ReviewRequest) (*model.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	loan, err := Get[model.Loan](ctx, r.ex, "SELECT "+loanColumns+" FROM loans WHERE id = ?", req.LoanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	var other string
	switch reviewerID {
	case loan.BorrowerID:
		other = loan.LenderID
	case loan.LenderID:
		other = loan.BorrowerID
	default:
		return nil, ErrNotLoanParticipant
	}
	if req.ReviewedID != other {
		return nil, ErrNotLoanParticipant
	}
	if loan.Status != model.LoanCompleted {
		return nil, ErrLoanNotCompleted
	}
	dup, err := r.Count(ctx, Filters{"loan_id": loan.ID, "reviewer_id": reviewerID, "review_type": string(req.Type)})
	if err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, ErrDuplicateReview
	}

	s := Set{
		{Column: "loan_id", Value: loan.ID},
		{Column: "reviewer_id", Value: reviewerID},
		{Column: "reviewed_id", Value: req.ReviewedID},
		{Column: "rating", Value: req.Rating},
	}
	s = setIf(s, "comment", req.Comment)
	s = append(s, Assignment{Column: "review_type", Value: string(req.Type)})
	rev, err := r.Base.Create(ctx, s)
	if isDuplicateKey(err) {
		return nil, ErrDuplicateReview
	}
	return rev, err
}

// Update changes rating or comment.  The rating bounds still apply.
func (r *ReviewRepo) Update(ctx context.Context, id string, in model.ReviewPatch) (*model.Review, error) {
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, ErrInvalidRating
	}
	var s Set
	s = setIf(s, "rating", in.Rating)
	s = setIf(s, "comment", in.Comment)
	return r.Base.Update(ctx, id, s)
}

type reviewDetailRow struct {
	model.Review
	ReviewerFirstName string    `db:"reviewer_first_name"`
	ReviewerLastName  string    `db:"reviewer_last_name"`
	ReviewerAvatarURL *string   `db:"reviewer_avatar_url"`
	ReviewerVerified  bool      `db:"reviewer_is_verified"`
	ReviewedFirstName string    `db:"reviewed_first_name"`
	ReviewedLastName  string    `db:"reviewed_last_name"`
	ReviewedAvatarURL *string   `db:"reviewed_avatar_url"`
	ReviewedVerified  bool      `db:"reviewed_is_verified"`
	LoanStartDate     time.Time `db:"loan_start_date"`
	LoanEndDate       time.Time `db:"loan_end_date"`
	ItemID            string    `db:"item_id"`
	ItemTitle         string    `db:"item_title"`
}

func (row reviewDetailRow) details() model.ReviewWithDetails {
	return model.ReviewWithDetails{
		Review: row.Review,
		Reviewer: model.UserSummary{
			ID:         row.ReviewerID,
			FirstName:  row.ReviewerFirstName,
			LastName:   row.ReviewerLastName,
			AvatarURL:  row.ReviewerAvatarURL,
			IsVerified: row.ReviewerVerified,
		},
		Reviewed: model.UserSummary{
			ID:         row.ReviewedID,
			FirstName:  row.ReviewedFirstName,
			LastName:   row.ReviewedLastName,
			AvatarURL:  row.ReviewedAvatarURL,
			IsVerified: row.ReviewedVerified,
		},
		Loan: model.ReviewLoanSummary{
			ID:        row.LoanID,
			StartDate: row.LoanStartDate,
			EndDate:   row.LoanEndDate,
			Item:      model.ItemRef{ID: row.ItemID, Title: row.ItemTitle},
		},
	}
}

var reviewDetailSelect = "SELECT " + prefixed("rv", reviewColumns) +
	", ra.first_name AS reviewer_first_name, ra.last_name AS reviewer_last_name" +
	", ra.avatar_url AS reviewer_avatar_url, ra.is_verified AS reviewer_is_verified" +
	", rb.first_name AS reviewed_first_name, rb.last_name AS reviewed_last_name" +
	", rb.avatar_url AS reviewed_avatar_url, rb.is_verified AS reviewed_is_verified" +
	", l.start_date AS loan_start_date, l.end_date AS loan_end_date" +
	", it.id AS item_id, it.title AS item_title" +
	" FROM reviews rv" +
	" JOIN users ra ON ra.id = rv.reviewer_id" +
	" JOIN users rb ON rb.id = rv.reviewed_id" +
	" JOIN loans l ON l.id = rv.loan_id" +
	" JOIN items it ON it.id = l.item_id"

// FindWithDetails returns the review with both users and the loan's item,
// or nil.
func (r *ReviewRepo) FindWithDetails(ctx context.Context, id string) (*model.ReviewWithDetails, error) {
	row, err := Get[reviewDetailRow](ctx, r.ex, reviewDetailSelect+" WHERE rv.id = ?", id)
	if err != nil || row == nil {
		return nil, err
	}
	out := row.details()
	return &out, nil
}

// FindByReviewedUser pages through the reviews a user received, newest
// first.
func (r *ReviewRepo) FindByReviewedUser(ctx context.Context, userID string, req PageRequest) (Page[model.ReviewWithDetails], error) {
	total, err := r.Count(ctx, Filters{"reviewed_id": userID})
	if err != nil {
		return Page[model.ReviewWithDetails]{}, err
	}
	rows, err := Select[reviewDetailRow](ctx, r.ex,
		reviewDetailSelect+" WHERE rv.reviewed_id = ? ORDER BY rv.created_at DESC LIMIT ? OFFSET ?",
		userID, req.Limit, req.Offset())
	if err != nil {
		return Page[model.ReviewWithDetails]{}, err
	}
	data := make([]model.ReviewWithDetails, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.details())
	}
	return NewPage(data, total, req), nil
}

type ratingRow struct {
	AverageRating float64 `db:"average_rating"`
	TotalReviews  int     `db:"total_reviews"`
	One           int     `db:"one_star"`
	Two           int     `db:"two_star"`
	Three         int     `db:"three_star"`
	Four          int     `db:"four_star"`
	Five          int     `db:"five_star"`
}

const ratingSummarySQL = `SELECT
	COALESCE(AVG(rating), 0) AS average_rating,
	COUNT(*) AS total_reviews,
	COUNT(CASE WHEN rating = 1 THEN 1 END) AS one_star,
	COUNT(CASE WHEN rating = 2 THEN 1 END) AS two_star,
	COUNT(CASE WHEN rating = 3 THEN 1 END) AS three_star,
	COUNT(CASE WHEN rating = 4 THEN 1 END) AS four_star,
	COUNT(CASE WHEN rating = 5 THEN 1 END) AS five_star
FROM reviews
WHERE reviewed_id = ?`

// GetRatingSummary aggregates the ratings a user received.  No reviews
// gives a zero summary.
func (r *ReviewRepo) GetRatingSummary(ctx context.Context, userID string) (model.RatingSummary, error) {
	row, err := Get[ratingRow](ctx, r.ex, ratingSummarySQL, userID)
	if err != nil || row == nil {
		return model.RatingSummary{}, err
	}
	return model.RatingSummary{
		AverageRating: row.AverageRating,
		TotalReviews:  row.TotalReviews,
		Distribution:  [6]int{0, row.One, row.Two, row.Three, row.Four, row.Five},
	}, nil
}
