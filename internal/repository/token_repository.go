package repository

import (
	"context"
	"time"

	"github.com/emprestaae/empresta-api/internal/model"
)

const tokenColumns = "id, user_id, token_hash, expires_at, is_revoked, created_at"

var tokenTable = Table{
	Name:       "refresh_tokens",
	Columns:    tokenColumns,
	Filterable: []string{"user_id", "is_revoked"},
}

// TokenRepo persists refresh-token hashes.  It never sees a plaintext
// token.
type TokenRepo struct{ *Base[model.RefreshToken] }

func NewTokenRepo(ex *Executor) *TokenRepo {
	return &TokenRepo{NewBase[model.RefreshToken](ex, tokenTable)}
}

func (r *TokenRepo) Create(ctx context.Context, in model.RefreshTokenCreate) (*model.RefreshToken, error) {
	return r.Base.Create(ctx, Set{
		{Column: "user_id", Value: in.UserID},
		{Column: "token_hash", Value: in.TokenHash},
		{Column: "expires_at", Value: in.ExpiresAt},
	})
}

// FindActiveByUser returns the user's tokens that are neither revoked nor
// expired at now, newest first.
func (r *TokenRepo) FindActiveByUser(ctx context.Context, userID string, now time.Time) ([]model.RefreshToken, error) {
	return Select[model.RefreshToken](ctx, r.ex, r.selectFrom()+
		" WHERE user_id = ? AND is_revoked = 0 AND expires_at > ? ORDER BY created_at DESC", userID, now)
}

// Revoke flags one token and reports whether this call flipped it.  A
// false result means another caller revoked it first.  The row is kept
// until the next sweep.
func (r *TokenRepo) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := r.ex.Exec(ctx, "UPDATE refresh_tokens SET is_revoked = 1 WHERE id = ? AND is_revoked = 0", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeAllForUser flags every live token of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.ex.Exec(ctx, "UPDATE refresh_tokens SET is_revoked = 1 WHERE user_id = ? AND is_revoked = 0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredOrRevoked removes dead rows and returns how many went.
func (r *TokenRepo) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.ex.Exec(ctx, "DELETE FROM refresh_tokens WHERE is_revoked = 1 OR expires_at <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
