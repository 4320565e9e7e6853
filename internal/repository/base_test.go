package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Qty       int       `db:"qty"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

var widgetTable = Table{
	Name:         "widgets",
	Columns:      "id, name, qty, is_active, created_at",
	Filterable:   []string{"name", "qty", "is_active"},
	ActiveColumn: "is_active",
}

var widgetCols = []string{"id", "name", "qty", "is_active", "created_at"}

const widgetSelect = "SELECT id, name, qty, is_active, created_at FROM widgets"

func widgetRow(id, name string, qty int, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(widgetCols).AddRow(id, name, qty, active, stamp)
}

func TestBase_FindByID(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewBase[widget](ex, widgetTable)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE id = ?")).
		WithArgs("w1").
		WillReturnRows(widgetRow("w1", "bolt", 3, true))
	mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(widgetCols))

	w, err := repo.FindByID(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "bolt", w.Name)

	w, err = repo.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBase_FindAll(t *testing.T) {
	t.Run("binds filters in order", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewBase[widget](ex, widgetTable)

		mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE is_active = ? AND qty = ? ORDER BY created_at DESC")).
			WithArgs(true, 3).
			WillReturnRows(widgetRow("w1", "bolt", 3, true).AddRow("w2", "nut", 3, true, stamp))

		rows, err := repo.FindAll(context.Background(), Filters{"qty": 3, "is_active": true, "name": nil})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewBase[widget](ex, widgetTable)

		mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " ORDER BY created_at DESC")).
			WillReturnRows(sqlmock.NewRows(widgetCols))

		rows, err := repo.FindAll(context.Background(), nil)
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("unknown filter rejected before sql", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewBase[widget](ex, widgetTable)

		_, err := repo.FindAll(context.Background(), Filters{"name; DROP TABLE widgets": "x"})
		assert.True(t, errors.Is(err, ErrUnknownFilter))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBase_FindWithPagination(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewBase[widget](ex, widgetTable)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM widgets WHERE name = ?")).
		WithArgs("bolt").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))
	mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE name = ? ORDER BY created_at DESC LIMIT ? OFFSET ?")).
		WithArgs("bolt", 20, 20).
		WillReturnRows(widgetRow("w21", "bolt", 1, true))

	page, err := repo.FindWithPagination(context.Background(), Filters{"name": "bolt"}, PageRequest{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, Pagination{Page: 2, Limit: 20, Total: 45, TotalPages: 3}, page.Pagination)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBase_FindWithPagination_Empty(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewBase[widget](ex, widgetTable)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM widgets")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " ORDER BY created_at DESC LIMIT ? OFFSET ?")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(widgetCols))

	page, err := repo.FindWithPagination(context.Background(), Filters{}, PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Pagination.TotalPages)
}

func TestBase_Create(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewBase[widget](ex, widgetTable)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 2; i++ {
		inserted, reread := &capture{}, &capture{}
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO widgets (id, name, qty) VALUES (?, ?, ?)")).
			WithArgs(inserted, "bolt", 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE id = ?")).
			WithArgs(reread).
			WillReturnRows(widgetRow("stored", "bolt", 7, true))

		w, err := repo.Create(ctx, Set{{Column: "name", Value: "bolt"}, {Column: "qty", Value: 7}})
		require.NoError(t, err)
		assert.Equal(t, "bolt", w.Name)
		assert.Equal(t, 7, w.Qty)

		id, ok := inserted.value.(string)
		require.True(t, ok)
		assert.Equal(t, id, reread.value)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
		ids = append(ids, id)
	}
	assert.NotEqual(t, ids[0], ids[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBase_Update(t *testing.T) {
	t.Run("only defined fields are set", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewBase[widget](ex, widgetTable)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE widgets SET qty = ? WHERE id = ?")).
			WithArgs(9, "w1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE id = ?")).
			WithArgs("w1").
			WillReturnRows(widgetRow("w1", "bolt", 9, true))

		qty := 9
		w, err := repo.Update(context.Background(), "w1", Set(setIf(nil, "qty", &qty)))
		require.NoError(t, err)
		assert.Equal(t, 9, w.Qty)
		assert.Equal(t, "bolt", w.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty payload issues no update", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewBase[widget](ex, widgetTable)

		mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE id = ?")).
			WithArgs("w1").
			WillReturnRows(widgetRow("w1", "bolt", 3, true))

		w, err := repo.Update(context.Background(), "w1", Set{})
		require.NoError(t, err)
		assert.Equal(t, 3, w.Qty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBase_DeleteAndExists(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewBase[widget](ex, widgetTable)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM widgets WHERE id = ?")).
		WithArgs("w1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM widgets WHERE id = ?")).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE id = ?")).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows(widgetCols))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM widgets WHERE id = ?")).
		WithArgs("w1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, removed)

	exists, err := repo.Exists(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, exists)

	w, err := repo.FindByID(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, w)

	removed, err = repo.Delete(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBase_SoftDelete(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewBase[widget](ex, widgetTable)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE widgets SET is_active = ? WHERE id = ?")).
		WithArgs(false, "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(widgetSelect + " WHERE id = ?")).
		WithArgs("w1").
		WillReturnRows(widgetRow("w1", "bolt", 3, false))

	w, err := repo.SoftDelete(context.Background(), "w1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.False(t, w.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())

	plain := NewBase[widget](ex, Table{Name: "widgets", Columns: widgetTable.Columns})
	_, err = plain.SoftDelete(context.Background(), "w1")
	assert.True(t, errors.Is(err, ErrSoftDeleteUnsupported))
}

func TestBase_Count(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewBase[widget](ex, widgetTable)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM widgets WHERE is_active = ?")).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.Count(context.Background(), Filters{"is_active": false})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
