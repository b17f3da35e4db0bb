package server

import (
	"errors"
	"log/slog"
	"strconv"

	"retouchly/internal/middleware"
	"retouchly/internal/models"
	"retouchly/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads limit and offset. Missing values take defaults;
// range checks are left to the services so every caller gets the same rules.
func parsePagination(c *fiber.Ctx) (Pagination, error) {
	page := Pagination{Limit: service.DefaultPageSize}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, models.NewValidationError("Invalid limit")
		}
		page.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, models.NewValidationError("Invalid offset")
		}
		page.Offset = n
	}
	return page, nil
}

// parseActivityID reads the :id route parameter.
func parseActivityID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, models.NewValidationError("Invalid activity ID")
	}
	return id, nil
}

// currentUser returns the authenticated user, or 0 for anonymous requests.
func currentUser(c *fiber.Ctx) uint {
	userID, _ := middleware.UserID(c)
	return userID
}

// respondError logs err once and writes the mapped error response.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}

	status := models.StatusFor(err)
	attrs := []any{
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", attrs...)
	} else {
		middleware.Logger.DebugContext(c.UserContext(), "request rejected", attrs...)
	}
	return models.RespondWithAppError(c, err)
}
