package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/middleware"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/service"
)

// RSVPHandler serves the per-event RSVP endpoints. Upserts carry
// create-or-replace semantics: a 201 means a new RSVP row, a 200
// means the caller's existing answer was replaced.
type RSVPHandler struct {
	Co *service.Coordinator
}

func NewRSVPHandler(co *service.Coordinator) *RSVPHandler {
	if co == nil {
		panic("nil coordinator passed to NewRSVPHandler")
	}
	return &RSVPHandler{Co: co}
}

type rsvpReq struct {
	Status string `json:"status"`
}

type rsvpResp struct {
	ID        uint64    `json:"id"`
	EventID   uint64    `json:"event_id"`
	UserID    uint64    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRSVPResp(v model.RSVP) rsvpResp {
	return rsvpResp{
		ID:        v.ID,
		EventID:   v.EventID,
		UserID:    v.UserID,
		Status:    v.Status,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// Upsert handles PUT /v1/events/:id/rsvp. An omitted status defaults
// to "going".
func (h *RSVPHandler) Upsert(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req rsvpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status == "" {
		req.Status = model.RSVPGoing
	}
	row, created, err := h.Co.UpsertRSVP(c.Request().Context(), middleware.Actor(c), id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, toRSVPResp(row))
}

// Delete handles DELETE /v1/events/:id/rsvp, removing the caller's
// own RSVP.
func (h *RSVPHandler) Delete(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Co.DeleteRSVP(c.Request().Context(), middleware.Actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByEvent handles GET /v1/events/:id/rsvps. Visibility follows
// the event itself.
func (h *RSVPHandler) ListByEvent(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	rows, err := h.Co.ListEventRSVPs(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]rsvpResp, 0, len(rows))
	for _, v := range rows {
		resp = append(resp, toRSVPResp(v))
	}
	return c.JSON(http.StatusOK, resp)
}
