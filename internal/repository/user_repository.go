package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/emprestaae/empresta-api/internal/geo"
	"github.com/emprestaae/empresta-api/internal/model"
)

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id, email, password_hash, first_name, last_name, phone, avatar_url, bio, " +
	"latitude, longitude, address, is_verified, is_active, created_at, updated_at"

var userTable = Table{
	Name:         "users",
	Columns:      userColumns,
	Filterable:   []string{"email", "is_active", "is_verified"},
	ActiveColumn: "is_active",
}

// UserRepo reads and writes the users table.
type UserRepo struct{ *Base[model.User] }

func NewUserRepo(ex *Executor) *UserRepo { return &UserRepo{NewBase[model.User](ex, userTable)} }

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// isDuplicateKey reports a MySQL unique-key violation (error 1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func userCreateValues(in model.UserCreate) Set {
	s := Set{
		{Column: "email", Value: normalizeEmail(in.Email)},
		{Column: "password_hash", Value: in.PasswordHash},
		{Column: "first_name", Value: in.FirstName},
		{Column: "last_name", Value: in.LastName},
	}
	s = setIf(s, "phone", in.Phone)
	s = setIf(s, "latitude", in.Latitude)
	s = setIf(s, "longitude", in.Longitude)
	return setIf(s, "address", in.Address)
}

func userPatchValues(in model.UserPatch) Set {
	var s Set
	s = setIf(s, "first_name", in.FirstName)
	s = setIf(s, "last_name", in.LastName)
	s = setIf(s, "phone", in.Phone)
	s = setIf(s, "avatar_url", in.AvatarURL)
	s = setIf(s, "bio", in.Bio)
	s = setIf(s, "latitude", in.Latitude)
	s = setIf(s, "longitude", in.Longitude)
	s = setIf(s, "address", in.Address)
	s = setIf(s, "password_hash", in.PasswordHash)
	s = setIf(s, "is_verified", in.IsVerified)
	return setIf(s, "is_active", in.IsActive)
}

// Create inserts a user.  A taken email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, in model.UserCreate) (*model.User, error) {
	u, err := r.Base.Create(ctx, userCreateValues(in))
	if isDuplicateKey(err) {
		return nil, ErrEmailExists
	}
	return u, err
}

// Update applies the non-nil fields of in.
func (r *UserRepo) Update(ctx context.Context, id string, in model.UserPatch) (*model.User, error) {
	return r.Base.Update(ctx, id, userPatchValues(in))
}

// FindByEmail looks the user up by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return Get[model.User](ctx, r.ex, r.selectFrom()+" WHERE email = ? LIMIT 1", normalizeEmail(email))
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.Count(ctx, Filters{"email": normalizeEmail(email)})
	return n > 0, err
}

// FindByLocation returns active users within radiusKm of center, nearest
// first.
func (r *UserRepo) FindByLocation(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]model.UserWithDistance, error) {
	w := &where{}
	w.add("u.is_active = 1")
	boxCondition(w, "u", center, radiusKm)

	q := "SELECT " + prefixed("u", userColumns) + ", " + distanceSQL("u") + " AS distance FROM users u" +
		w.sql() + " HAVING distance <= ? ORDER BY distance ASC LIMIT ?"
	args := append(distanceArgs(center), w.args...)
	args = append(args, radiusKm, limit)
	return Select[model.UserWithDistance](ctx, r.ex, q, args...)
}

const userStatsSQL = `SELECT
	(SELECT COUNT(*) FROM items WHERE owner_id = ? AND is_active = 1) AS items_count,
	(SELECT COUNT(*) FROM loans WHERE (borrower_id = ? OR lender_id = ?) AND status = 'active') AS active_loans,
	(SELECT COUNT(*) FROM loans WHERE (borrower_id = ? OR lender_id = ?) AND status = 'completed') AS completed_loans,
	(SELECT COUNT(*) FROM reviews WHERE reviewed_id = ?) AS review_count,
	(SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE reviewed_id = ?) AS average_rating`

// GetStats returns the profile rollup.  A user with no activity gets zeros.
func (r *UserRepo) GetStats(ctx context.Context, userID string) (model.UserStats, error) {
	st, err := Get[model.UserStats](ctx, r.ex, userStatsSQL, userID, userID, userID, userID, userID, userID, userID)
	if err != nil || st == nil {
		return model.UserStats{}, err
	}
	return *st, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.ex.Exec(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	return err
}

func (r *UserRepo) UpdateLocation(ctx context.Context, id string, lat, lng float64, address *string) (*model.User, error) {
	return r.Update(ctx, id, model.UserPatch{Latitude: &lat, Longitude: &lng, Address: address})
}

func (r *UserRepo) MarkVerified(ctx context.Context, id string) (*model.User, error) {
	verified := true
	return r.Update(ctx, id, model.UserPatch{IsVerified: &verified})
}

// Deactivate soft-deletes the account.
func (r *UserRepo) Deactivate(ctx context.Context, id string) (*model.User, error) {
	return r.SoftDelete(ctx, id)
}

// prefixed qualifies every column of a projection with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
