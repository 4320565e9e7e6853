package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emprestaae/empresta-api/internal/model"
)

func TestCategoryRepo_FindActive(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewCategoryRepo(ex)

	cols := []string{"id", "name", "description", "icon", "color", "is_active", "created_at", "updated_at", "items_count"}
	mock.ExpectQuery(`FROM categories c LEFT JOIN items i .+ WHERE c.is_active = 1 GROUP BY c.id ORDER BY c.name ASC`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "Camping", nil, "tent", "#0a0", true, stamp, stamp, 0).
			AddRow("c2", "Tools", nil, "drill", "#a00", true, stamp, stamp, 12))

	cats, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Camping", cats[0].Name)
	assert.Equal(t, 12, cats[1].ItemsCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepo_GetStats(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewCategoryRepo(ex)

	cols := []string{"items_count", "available_items", "active_loans", "average_daily_rate"}
	mock.ExpectQuery(`AS available_items`).
		WithArgs("c1", "c1", "c1", "c1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(0, 0, 0, "0"))

	st, err := repo.GetStats(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryStats{}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}
