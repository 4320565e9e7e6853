// Package auth issues access tokens and manages the refresh-token
// lifecycle: issue, verify, rotate, revoke and sweep.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/emprestaae/empresta-api/internal/config"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/utils"
)

// ErrInvalidRefreshToken covers every refresh failure: unknown, expired,
// revoked or malformed tokens all look the same to the caller.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenStore is the persistence the service needs.  It stores hashes only.
type TokenStore interface {
	Create(ctx context.Context, in model.RefreshTokenCreate) (*model.RefreshToken, error)
	FindActiveByUser(ctx context.Context, userID string, now time.Time) ([]model.RefreshToken, error)
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}

// Issued is a refresh token as handed to the client.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// TokenService owns refresh tokens.  The plaintext exists only in the value
// returned by Issue; the store keeps a bcrypt hash of its SHA-256 digest.
type TokenService struct {
	store  TokenStore
	secret string
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewTokenService(store TokenStore, cfg config.AuthConfig) *TokenService {
	return &TokenService{
		store:  store,
		secret: cfg.RefreshSecret,
		ttl:    cfg.RefreshTTL(),
		cost:   cfg.BcryptCost,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates, stores and returns a new refresh token for the user.
func (s *TokenService) Issue(ctx context.Context, userID string) (Issued, error) {
	ref, err := utils.NewRefreshToken(s.secret, userID, s.now(), s.ttl)
	if err != nil {
		return Issued{}, err
	}
	hash, err := utils.HashRefresh(ref.Raw, s.cost)
	if err != nil {
		return Issued{}, err
	}
	if _, err := s.store.Create(ctx, model.RefreshTokenCreate{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: ref.Exp,
	}); err != nil {
		return Issued{}, err
	}
	return Issued{Token: ref.Raw, ExpiresAt: ref.Exp}, nil
}

// Verify finds the live stored token matching raw.  Each candidate is
// checked by re-hashing raw against it.
func (s *TokenService) Verify(ctx context.Context, userID, raw string) (*model.RefreshToken, error) {
	now := s.now()
	rows, err := s.store.FindActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		row := rows[i]
		if row.IsRevoked || !row.ExpiresAt.After(now) {
			continue
		}
		if utils.VerifyRefresh(row.TokenHash, raw) {
			return &row, nil
		}
	}
	return nil, ErrInvalidRefreshToken
}

// Subject returns the user a refresh token was issued to.  It checks the
// signature and expiry but not the store.
func (s *TokenService) Subject(raw string) (string, error) {
	c, err := utils.ParseRefreshToken(s.secret, raw, s.now())
	if err != nil || c.Subject == "" {
		return "", ErrInvalidRefreshToken
	}
	return c.Subject, nil
}

// Rotate exchanges a valid refresh token for a new one.  The old token is
// revoked; a token can be rotated once, so a concurrent second caller gets
// ErrInvalidRefreshToken.
func (s *TokenService) Rotate(ctx context.Context, raw string) (string, Issued, error) {
	userID, err := s.Subject(raw)
	if err != nil {
		return "", Issued{}, err
	}
	row, err := s.Verify(ctx, userID, raw)
	if err != nil {
		return "", Issued{}, err
	}
	if err := s.revoke(ctx, row.ID); err != nil {
		return "", Issued{}, err
	}
	next, err := s.Issue(ctx, userID)
	return userID, next, err
}

// Revoke flags the stored token matching raw.  The row stays until Sweep.
func (s *TokenService) Revoke(ctx context.Context, userID, raw string) error {
	row, err := s.Verify(ctx, userID, raw)
	if err != nil {
		return err
	}
	return s.revoke(ctx, row.ID)
}

func (s *TokenService) revoke(ctx context.Context, id string) error {
	ok, err := s.store.Revoke(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidRefreshToken
	}
	return nil
}

// RevokeAll logs the user out everywhere.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return s.store.RevokeAllForUser(ctx, userID)
}

// Sweep deletes expired and revoked tokens and returns how many went.
func (s *TokenService) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredOrRevoked(ctx, s.now())
}
