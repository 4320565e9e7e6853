package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored, only a salted one-way hash of it.  A user may hold
// several live tokens (one per device).
type RefreshToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	IsRevoked bool      `db:"is_revoked"`
	CreatedAt time.Time `db:"created_at"`
}

type RefreshTokenCreate struct {
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}

type RefreshTokenPatch struct {
	IsRevoked *bool
}
