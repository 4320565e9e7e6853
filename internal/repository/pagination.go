package repository

// PageRequest is 1-based.  Callers validate Page >= 1 and Limit > 0; the
// repository does not clamp.
type PageRequest struct {
	Page  int
	Limit int
}

// Offset returns the number of rows skipped before this page.
func (p PageRequest) Offset() int { return (p.Page - 1) * p.Limit }

// Pagination is the metadata half of the list envelope.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is the list envelope returned by every paginated read.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// TotalPages is ceil(total/limit), and 0 when there is nothing to page.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// NewPage wraps data with pagination metadata.  A nil slice becomes empty.
func NewPage[T any](data []T, total int, req PageRequest) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data: data,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: TotalPages(total, req.Limit),
		},
	}
}
