package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/cache"
	"github.com/iliyamo/event-hub/internal/middleware"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/service"
)

// EventHandler serves the event resource. Reads go through the
// coordinator for visibility scoping and may be answered from the
// read-view cache; every write goes through the coordinator, which
// evicts the affected cache entries after commit.
type EventHandler struct {
	Co    *service.Coordinator
	Cache *cache.Store
}

func NewEventHandler(co *service.Coordinator, store *cache.Store) *EventHandler {
	if co == nil {
		panic("nil coordinator passed to NewEventHandler")
	}
	return &EventHandler{Co: co, Cache: store}
}

// ----- DTOs -----

type createEventReq struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	IsPublic    *bool     `json:"is_public"`
}

type updateEventReq struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	IsPublic    *bool      `json:"is_public"`
}

type eventResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	OrganizerID uint64    `json:"organizer_id"`
	IsPublic    bool      `json:"is_public"`
	IsUpcoming  bool      `json:"is_upcoming"`
	IsOngoing   bool      `json:"is_ongoing"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEventResp(ev model.Event) eventResp {
	now := time.Now().UTC()
	return eventResp{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		OrganizerID: ev.OrganizerID,
		IsPublic:    ev.IsPublic,
		IsUpcoming:  ev.IsUpcoming(now),
		IsOngoing:   ev.IsOngoing(now),
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

// Create handles POST /v1/events. The authenticated caller becomes
// the organizer. Visibility defaults to public when omitted.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	ev, err := h.Co.CreateEvent(c.Request().Context(), middleware.Actor(c), service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsPublic:    isPublic,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// Get handles GET /v1/events/:id. Public event details are served
// from cache when possible; only public snapshots are ever cached, so
// a hit can go to anyone, anonymous callers included.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	if h.Cache.Enabled() {
		if bs, ok := h.Cache.Get(ctx, h.Cache.EventDetailKey(id)); ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSONBlob(http.StatusOK, bs)
		}
	}

	ev, err := h.Co.GetEvent(ctx, middleware.Actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	resp := toEventResp(ev)
	if ev.IsPublic && h.Cache.Enabled() {
		// This Set can race an update's eviction and re-cache the
		// pre-update snapshot; the entry's TTL bounds how long that
		// stale view survives.
		if bs, err := json.Marshal(resp); err == nil {
			h.Cache.Set(ctx, h.Cache.EventDetailKey(ev.ID), bs)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// List handles GET /v1/events. Anonymous callers see the public
// listing, which is cache-backed; authenticated callers get their
// visibility-scoped listing straight from the store.
func (h *EventHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	actor := middleware.Actor(c)

	if !actor.Authenticated && h.Cache.Enabled() {
		if bs, ok := h.Cache.Get(ctx, h.Cache.PublicListKey()); ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSONBlob(http.StatusOK, bs)
		}
	}

	events, err := h.Co.ListEvents(ctx, actor)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]eventResp, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResp(ev))
	}
	if !actor.Authenticated && h.Cache.Enabled() {
		if bs, err := json.Marshal(resp); err == nil {
			h.Cache.Set(ctx, h.Cache.PublicListKey(), bs)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Update handles PATCH /v1/events/:id (organizer only).
func (h *EventHandler) Update(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Co.UpdateEvent(c.Request().Context(), middleware.Actor(c), id, service.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResp(ev))
}

// Delete handles DELETE /v1/events/:id (organizer only). RSVPs and
// reviews cascade away with the event.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Co.DeleteEvent(c.Request().Context(), middleware.Actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
