package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/service"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

type userService interface {
	Profile(ctx context.Context, actor service.Actor) (*model.User, error)
	UpdateProfile(ctx context.Context, actor service.Actor, in service.ProfileInput) (*model.User, error)
	SetProfilePicture(ctx context.Context, actor service.Actor, u storage.Upload) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	OpenProfilePicture(ctx context.Context, actor service.Actor, id string) (*service.File, error)
}

// UserHandler serves /api/users.
type UserHandler struct {
	users userService
}

func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

type profileReq struct {
	Name        *string            `json:"name"`
	Bio         *string            `json:"bio"`
	SocialLinks *model.SocialLinks `json:"socialLinks"`
}

// GET /api/users/profile
func (h *UserHandler) Profile(c echo.Context) error {
	u, err := h.users.Profile(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.users.UpdateProfile(c.Request().Context(), actor(c), service.ProfileInput{
		Name:        req.Name,
		Bio:         req.Bio,
		SocialLinks: req.SocialLinks,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// POST /api/users/profile/picture (multipart, field "profilePicture")
func (h *UserHandler) SetProfilePicture(c echo.Context) error {
	up, err := upload(c, "profilePicture")
	if err != nil {
		return err
	}
	u, err := h.users.SetProfilePicture(c.Request().Context(), actor(c), up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// GET /api/users/:id (admin)
func (h *UserHandler) Get(c echo.Context) error {
	u, err := h.users.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// GET /api/users/:id/picture (the user themself or an admin)
func (h *UserHandler) Picture(c echo.Context) error {
	f, err := h.users.OpenProfilePicture(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return sendFile(c, f)
}
