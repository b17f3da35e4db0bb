package service

import (
	"fmt"

	"retouchly/internal/models"
)

// Page size bounds shared by every listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func validatePage(limit, offset int) error {
	if limit < 1 || limit > MaxPageSize {
		return models.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxPageSize))
	}
	if offset < 0 {
		return models.NewValidationError("offset must not be negative")
	}
	return nil
}
