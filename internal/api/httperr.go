package api

import (
	"errors"
	"net/http"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/labstack/echo/v4"
)

// errorResponse maps the domain error taxonomy onto HTTP status codes.
// Scoring errors never reach this layer; the blender absorbs them.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientCredit):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicate):
		status = http.StatusConflict
	}

	return c.JSON(status, map[string]string{"error": err.Error()})
}
