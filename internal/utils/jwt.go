package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenType is returned when a refresh token is presented as an access
// token or the other way round.
var ErrTokenType = errors.New("unexpected token type")

// AccessToken is a signed, short-lived JWT sent in the Authorization header.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is the plaintext handed to the client once.  ID is the jti
// claim; only a hash of Raw is ever persisted.
type RefreshToken struct {
	Raw string
	ID  string
	Exp time.Time
}

// Claims is the claim set shared by access and refresh tokens.  Type tells
// them apart.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

func sign(secret string, c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func newClaims(typ, userID string, now, exp time.Time) Claims {
	return Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

// NewAccessToken builds and signs an HS256 access token whose subject is
// the user id.
func NewAccessToken(secret, userID string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	signed, err := sign(secret, newClaims(typeAccess, userID, now, exp))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken signs a refresh token for the user, valid for ttl from
// now.  The random jti makes every token unique even within one second.
func NewRefreshToken(secret, userID string, now time.Time, ttl time.Duration) (RefreshToken, error) {
	exp := now.UTC().Add(ttl)
	c := newClaims(typeRefresh, userID, now.UTC(), exp)
	signed, err := sign(secret, c)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, ID: c.ID, Exp: exp}, nil
}

func parse(secret, raw, typ string, opts ...jwt.ParserOption) (*Claims, error) {
	var c Claims
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...); err != nil {
		return nil, err
	}
	if c.Type != typ {
		return nil, ErrTokenType
	}
	return &c, nil
}

// ParseAccessToken validates signature, expiry and type and returns the
// claims.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	return parse(secret, raw, typeAccess)
}

// ParseRefreshToken validates a refresh token at the given instant.
func ParseRefreshToken(secret, raw string, now time.Time) (*Claims, error) {
	return parse(secret, raw, typeRefresh, jwt.WithTimeFunc(func() time.Time { return now }))
}

// HashRefreshRaw returns the hex SHA-256 of a refresh token.  Refresh
// tokens are longer than the 72 bytes bcrypt accepts, so this digest is
// what gets bcrypt-hashed.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
