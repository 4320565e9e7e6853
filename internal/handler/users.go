package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/auth"
	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/repository"
	"github.com/emprestaae/empresta-api/internal/utils"
)

// UserHandler serves public profiles and the authenticated user's account.
type UserHandler struct {
	Users      *repository.UserRepo
	Tokens     *auth.TokenService
	BcryptCost int
}

func NewUserHandler(u *repository.UserRepo, t *auth.TokenService, bcryptCost int) *UserHandler {
	return &UserHandler{Users: u, Tokens: t, BcryptCost: bcryptCost}
}

type profileResp struct {
	model.UserSummary
	Bio       *string `json:"bio,omitempty"`
	Address   *string `json:"address,omitempty"`
	CreatedAt string  `json:"memberSince"`
}

type nearbyUser struct {
	model.UserSummary
	Distance float64 `json:"distance"`
}

type updateProfileReq struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=500"`
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
}

type locationReq struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address   *string  `json:"address" validate:"omitempty,max=255"`
}

type passwordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

func (h *UserHandler) activeUser(c echo.Context, id string) (*model.User, error) {
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, notFound("user")
	}
	return u, nil
}

// GetUser returns the public profile of an active user.
func (h *UserHandler) GetUser(c echo.Context) error {
	u, err := h.activeUser(c, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResp{
		UserSummary: u.Public(),
		Bio:         u.Bio,
		Address:     u.Address,
		CreatedAt:   u.CreatedAt.Format(dateLayout),
	})
}

// Stats returns the item, loan and rating rollup of a user.
func (h *UserHandler) Stats(c echo.Context) error {
	u, err := h.activeUser(c, c.Param("id"))
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	stats, err := h.Users.GetStats(ctx, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Nearby lists active users within ?radius km of ?lat,?lng, closest first.
func (h *UserHandler) Nearby(c echo.Context) error {
	center, err := queryPoint(c)
	if err != nil {
		return err
	}
	if center == nil {
		return badRequest("lat and lng are required")
	}
	radius := float64(queryInt(c, "radius", 10, 1, 500))
	limit := queryInt(c, "limit", defaultLimit, 1, maxLimit)

	ctx, cancel := requestContext(c)
	defer cancel()
	users, err := h.Users.FindByLocation(ctx, *center, radius, limit)
	if err != nil {
		return err
	}
	out := make([]nearbyUser, 0, len(users))
	for _, u := range users {
		out = append(out, nearbyUser{UserSummary: u.Public(), Distance: u.Distance})
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateMe changes the profile fields present in the body.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req updateProfileReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.Update(ctx, middleware.UserID(c), model.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		return fail(err)
	}
	if u == nil {
		return notFound("user")
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateLocation sets the coordinates used by distance searches.
func (h *UserHandler) UpdateLocation(c echo.Context) error {
	var req locationReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.UpdateLocation(ctx, middleware.UserID(c), *req.Latitude, *req.Longitude, req.Address)
	if err != nil {
		return err
	}
	if u == nil {
		return notFound("user")
	}
	return c.JSON(http.StatusOK, u)
}

// ChangePassword replaces the password and signs the user out everywhere.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req passwordReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := h.activeUser(c, middleware.UserID(c))
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return echo.NewHTTPError(http.StatusUnauthorized, "current password is wrong")
	}
	hash, err := utils.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if _, err := h.Tokens.RevokeAll(ctx, u.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteMe deactivates the account and revokes its refresh tokens.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	uid := middleware.UserID(c)
	u, err := h.Users.Deactivate(ctx, uid)
	if err != nil {
		return err
	}
	if u == nil {
		return notFound("user")
	}
	if _, err := h.Tokens.RevokeAll(ctx, uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
