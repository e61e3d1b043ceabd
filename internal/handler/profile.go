package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/middleware"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/service"
)

// ProfileHandler serves the caller's own profile. Profiles are
// created lazily: the first GET materializes an empty one.
type ProfileHandler struct {
	Co *service.Coordinator
}

func NewProfileHandler(co *service.Coordinator) *ProfileHandler {
	if co == nil {
		panic("nil coordinator passed to NewProfileHandler")
	}
	return &ProfileHandler{Co: co}
}

type updateProfileReq struct {
	FullName   string  `json:"full_name" validate:"max=255"`
	Bio        string  `json:"bio"`
	Location   string  `json:"location" validate:"max=255"`
	PictureURL *string `json:"picture_url" validate:"omitempty,url"`
}

type profileResp struct {
	UserID     uint64    `json:"user_id"`
	FullName   string    `json:"full_name"`
	Bio        string    `json:"bio"`
	Location   string    `json:"location"`
	PictureURL *string   `json:"picture_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toProfileResp(p model.Profile) profileResp {
	return profileResp{
		UserID:     p.UserID,
		FullName:   p.FullName,
		Bio:        p.Bio,
		Location:   p.Location,
		PictureURL: p.PictureURL,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// Get handles GET /v1/profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	p, err := h.Co.GetProfile(c.Request().Context(), middleware.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toProfileResp(p))
}

// Update handles PUT /v1/profile.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.Co.UpdateProfile(c.Request().Context(), middleware.Actor(c), service.UpdateProfileInput{
		FullName:   req.FullName,
		Bio:        req.Bio,
		Location:   req.Location,
		PictureURL: req.PictureURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toProfileResp(p))
}
