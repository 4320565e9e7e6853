package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Offset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, PageRequest{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 7, PageRequest{Page: 8, Limit: 1}.Offset())
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ total, limit, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{99, 20, 5},
		{5, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TotalPages(tc.total, tc.limit), "total=%d limit=%d", tc.total, tc.limit)
	}
}

func TestNewPage_EmptyData(t *testing.T) {
	p := NewPage[string](nil, 0, PageRequest{Page: 1, Limit: 10})
	assert.NotNil(t, p.Data)
	assert.Empty(t, p.Data)
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Total: 0, TotalPages: 0}, p.Pagination)
}
