package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/repository"
	"github.com/iliyamo/event-hub/internal/service"
)

// Validator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound request bodies.
type Validator struct{ validate *validator.Validate }

func NewValidator() *Validator { return &Validator{validate: validator.New()} }

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// eventIDParam parses the :id path parameter.
func eventIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid event id")
	}
	return id, nil
}

// writeError translates the service error taxonomy into HTTP status
// codes. Hidden denials and missing rows both come out as 404 so a
// caller cannot tell a private event from an absent one.
func writeError(c echo.Context, err error) error {
	if d, ok := service.AsDenied(err); ok {
		if d.Hidden {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": d.Reason})
	}
	if v, ok := service.AsValidation(err); ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": v.Message, "field": v.Field})
	}
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if errors.Is(err, service.ErrConflict) || errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
