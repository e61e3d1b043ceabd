package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/middleware"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/service"
)

// ReviewHandler serves the per-event review endpoints with the same
// create-or-replace semantics as RSVPs.
type ReviewHandler struct {
	Co *service.Coordinator
}

func NewReviewHandler(co *service.Coordinator) *ReviewHandler {
	if co == nil {
		panic("nil coordinator passed to NewReviewHandler")
	}
	return &ReviewHandler{Co: co}
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResp struct {
	ID        uint64    `json:"id"`
	EventID   uint64    `json:"event_id"`
	UserID    uint64    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toReviewResp(v model.Review) reviewResp {
	return reviewResp{
		ID:        v.ID,
		EventID:   v.EventID,
		UserID:    v.UserID,
		Rating:    v.Rating,
		Comment:   v.Comment,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// Upsert handles PUT /v1/events/:id/review. Rating bounds are
// enforced by the coordinator before any write.
func (h *ReviewHandler) Upsert(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	row, created, err := h.Co.UpsertReview(c.Request().Context(), middleware.Actor(c), id, req.Rating, req.Comment)
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, toReviewResp(row))
}

// Delete handles DELETE /v1/events/:id/review, removing the caller's
// own review.
func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Co.DeleteReview(c.Request().Context(), middleware.Actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByEvent handles GET /v1/events/:id/reviews.
func (h *ReviewHandler) ListByEvent(c echo.Context) error {
	id, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	rows, err := h.Co.ListEventReviews(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]reviewResp, 0, len(rows))
	for _, v := range rows {
		resp = append(resp, toReviewResp(v))
	}
	return c.JSON(http.StatusOK, resp)
}
