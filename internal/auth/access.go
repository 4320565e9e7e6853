package auth

import (
	"time"

	"github.com/emprestaae/empresta-api/internal/config"
	"github.com/emprestaae/empresta-api/internal/utils"
)

// AccessTokens issues and checks the short-lived bearer tokens.
type AccessTokens struct {
	secret string
	ttl    time.Duration
}

func NewAccessTokens(cfg config.AuthConfig) *AccessTokens {
	return &AccessTokens{secret: cfg.JWTSecret, ttl: cfg.AccessTTL()}
}

func (a *AccessTokens) Issue(userID string) (utils.AccessToken, error) {
	return utils.NewAccessToken(a.secret, userID, a.ttl)
}

// Parse returns the user id carried by a valid access token.
func (a *AccessTokens) Parse(raw string) (string, error) {
	c, err := utils.ParseAccessToken(a.secret, raw)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}
