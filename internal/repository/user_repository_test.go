package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emprestaae/empresta-api/internal/geo"
	"github.com/emprestaae/empresta-api/internal/model"
)

var userCols = []string{
	"id", "email", "password_hash", "first_name", "last_name", "phone", "avatar_url", "bio",
	"latitude", "longitude", "address", "is_verified", "is_active", "created_at", "updated_at",
}

func userRow(id, email string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).AddRow(id, email, "hash", "Ana", "Silva", nil, nil, nil,
		nil, nil, nil, false, active, stamp, stamp)
}

const userByIDPattern = `SELECT id, email, .+ FROM users WHERE id = \?`

func TestUserRepo_Create(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewUserRepo(ex)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, email, password_hash, first_name, last_name) VALUES (?, ?, ?, ?, ?)")).
		WithArgs(sqlmock.AnyArg(), "ana@example.com", "hash", "Ana", "Silva").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(userByIDPattern).WillReturnRows(userRow("u1", "ana@example.com", true))

	u, err := repo.Create(context.Background(), model.UserCreate{
		Email: "  Ana@Example.com ", PasswordHash: "hash", FirstName: "Ana", LastName: "Silva",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewUserRepo(ex)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(context.Background(), model.UserCreate{Email: "ana@example.com"})
	assert.True(t, errors.Is(err, ErrEmailExists))
}

func TestUserRepo_FindByEmail(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewUserRepo(ex)

	mock.ExpectQuery(`FROM users WHERE email = \? LIMIT 1`).
		WithArgs("ana@example.com").
		WillReturnRows(userRow("u1", "ana@example.com", true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE email = ?")).
		WithArgs("bob@example.com").
		WillReturnRows(countRows(0))

	u, err := repo.FindByEmail(context.Background(), "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "hash", u.PasswordHash)

	exists, err := repo.EmailExists(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_FindByLocation(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewUserRepo(ex)
	center := geo.Point{Lat: -23.55, Lng: -46.63}
	box := geo.BoundingBox(center, 5)

	cols := append(append([]string{}, userCols...), "distance")
	mock.ExpectQuery(`FROM users u WHERE u.is_active = 1 AND .+ HAVING distance <= \? ORDER BY distance ASC LIMIT \?`).
		WithArgs(center.Lat, center.Lng, center.Lat, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng, 5.0, 50).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u2", "b@x.com", "h", "Bia", "Lima", nil, nil, nil,
			-23.56, -46.64, nil, true, true, stamp, stamp, 1.4))

	users, err := repo.FindByLocation(context.Background(), center, 5, 50)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1.4, users[0].Distance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetStats(t *testing.T) {
	cols := []string{"items_count", "active_loans", "completed_loans", "review_count", "average_rating"}

	t.Run("values", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewUserRepo(ex)
		mock.ExpectQuery(`AS items_count`).
			WithArgs("u1", "u1", "u1", "u1", "u1", "u1", "u1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(3, 1, 4, 2, "4.5000"))

		st, err := repo.GetStats(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, model.UserStats{ItemsCount: 3, ActiveLoans: 1, CompletedLoans: 4, ReviewCount: 2, AverageRating: 4.5}, st)
	})

	t.Run("no row gives zeros", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewUserRepo(ex)
		mock.ExpectQuery(`AS items_count`).WillReturnRows(sqlmock.NewRows(cols))

		st, err := repo.GetStats(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, model.UserStats{}, st)
	})
}

func TestUserRepo_Deactivate(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewUserRepo(ex)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = ? WHERE id = ?")).
		WithArgs(false, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(userByIDPattern).WithArgs("u1").WillReturnRows(userRow("u1", "a@x.com", false))

	u, err := repo.Deactivate(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
