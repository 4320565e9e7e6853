package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/auth"
	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/repository"
	"github.com/emprestaae/empresta-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users      *repository.UserRepo
	Tokens     *auth.TokenService
	Access     *auth.AccessTokens
	BcryptCost int
}

func NewAuthHandler(u *repository.UserRepo, t *auth.TokenService, a *auth.AccessTokens, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: u, Tokens: t, Access: a, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type registerReq struct {
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,min=8,max=72"`
	FirstName string   `json:"firstName" validate:"required,max=100"`
	LastName  string   `json:"lastName" validate:"required,max=100"`
	Phone     *string  `json:"phone" validate:"omitempty,max=20"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Address   *string  `json:"address" validate:"omitempty,max=255"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    *model.User `json:"user,omitempty"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func (h *AuthHandler) issuePair(ctx context.Context, userID string) (authResp, error) {
	access, err := h.Access.Issue(userID)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := h.Tokens.Issue(ctx, userID)
	if err != nil {
		return authResp{}, err
	}
	return authResp{
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Token, Expires: refresh.ExpiresAt},
	}, nil
}

// Register creates the account and signs the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return badRequest("latitude and longitude go together")
	}
	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, model.UserCreate{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Address:      req.Address,
	})
	if err != nil {
		return fail(err)
	}
	resp, err := h.issuePair(ctx, u.ID)
	if err != nil {
		return err
	}
	resp.User = u
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies the credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if u == nil || !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	resp, err := h.issuePair(ctx, u.ID)
	if err != nil {
		return err
	}
	resp.User = u
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is returned.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	userID, issued, err := h.Tokens.Rotate(ctx, req.RefreshToken)
	if err != nil {
		return fail(err)
	}
	u, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil || !u.IsActive {
		_, _ = h.Tokens.RevokeAll(ctx, userID)
		return fail(auth.ErrInvalidRefreshToken)
	}
	access, err := h.Access.Issue(userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: issued.Token, Expires: issued.ExpiresAt},
	})
}

// Logout revokes the presented refresh token.  No access token is needed.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	userID, err := h.Tokens.Subject(req.RefreshToken)
	if err != nil {
		return fail(err)
	}
	if err := h.Tokens.Revoke(ctx, userID, req.RefreshToken); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Tokens.RevokeAll(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}

// Me returns the authenticated user's own record.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.FindByID(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	if u == nil || !u.IsActive {
		return notFound("user")
	}
	return c.JSON(http.StatusOK, u)
}
