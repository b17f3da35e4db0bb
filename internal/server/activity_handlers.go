package server

import (
	"retouchly/internal/models"
	"retouchly/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateActivityRequest is the body of POST /api/activities.
type CreateActivityRequest struct {
	ArtifactURL string `json:"artifact_url"`
	Prompt      string `json:"prompt"`
	Kind        string `json:"kind"`
	IsPublic    bool   `json:"is_public"`
}

// VisibilityRequest is the body of PUT /api/activities/:id/visibility.
type VisibilityRequest struct {
	IsPublic *bool `json:"is_public"`
}

// LikeStatusResponse answers GET /api/activities/:id/like.
type LikeStatusResponse struct {
	Liked bool `json:"liked"`
}

// CreateActivity handles POST /api/activities
// @Summary Record an AI tool output
// @Tags activities
// @Accept json
// @Produce json
// @Param request body CreateActivityRequest true "Activity"
// @Success 201 {object} models.Activity
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /activities [post]
func (s *Server) CreateActivity(c *fiber.Ctx) error {
	var req CreateActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	activity, err := s.activities.Create(c.UserContext(), service.CreateActivityInput{
		OwnerID:     currentUser(c),
		ArtifactURL: req.ArtifactURL,
		Prompt:      req.Prompt,
		Kind:        req.Kind,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(activity)
}

// GetActivity handles GET /api/activities/:id
// @Summary Get one activity
// @Description Private activities are only visible to their owner.
// @Tags activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} models.FeedItem
// @Failure 404 {object} models.ErrorResponse
// @Router /activities/{id} [get]
func (s *Server) GetActivity(c *fiber.Ctx) error {
	id, err := parseActivityID(c)
	if err != nil {
		return respondError(c, err)
	}
	item, err := s.activities.Get(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// ListMyActivities handles GET /api/activities/me
// @Summary List the caller's activities
// @Tags activities
// @Produce json
// @Param limit query int false "Page size (1-100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Activity
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /activities/me [get]
func (s *Server) ListMyActivities(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return respondError(c, err)
	}
	activities, err := s.activities.ListMine(c.UserContext(), currentUser(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return c.JSON(activities)
}

// DeleteActivity handles DELETE /api/activities/:id
// @Summary Delete an owned activity and its likes
// @Tags activities
// @Param id path string true "Activity ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /activities/{id} [delete]
func (s *Server) DeleteActivity(c *fiber.Ctx) error {
	id, err := parseActivityID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.activities.Delete(c.UserContext(), currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetVisibility handles PUT /api/activities/:id/visibility
// @Summary Publish or hide an activity
// @Tags engagement
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param request body VisibilityRequest true "Visibility"
// @Success 200 {object} models.Activity
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /activities/{id}/visibility [put]
func (s *Server) SetVisibility(c *fiber.Ctx) error {
	id, err := parseActivityID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req VisibilityRequest
	if err := c.BodyParser(&req); err != nil || req.IsPublic == nil {
		return respondError(c, models.NewValidationError("is_public is required"))
	}

	activity, err := s.engagement.SetVisibility(c.UserContext(), currentUser(c), id, *req.IsPublic)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(activity)
}

// GetLikeStatus handles GET /api/activities/:id/like
// @Summary Whether the caller likes an activity
// @Tags engagement
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} LikeStatusResponse
// @Security BearerAuth
// @Router /activities/{id}/like [get]
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	id, err := parseActivityID(c)
	if err != nil {
		return respondError(c, err)
	}
	liked, err := s.engagement.IsLiked(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(LikeStatusResponse{Liked: liked})
}

// LikeActivity handles POST /api/activities/:id/like
// @Summary Like an activity
// @Tags engagement
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} models.EngagementCounts
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Already liked"
// @Security BearerAuth
// @Router /activities/{id}/like [post]
func (s *Server) LikeActivity(c *fiber.Ctx) error {
	id, err := parseActivityID(c)
	if err != nil {
		return respondError(c, err)
	}
	counts, err := s.engagement.Like(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}

// UnlikeActivity handles DELETE /api/activities/:id/like
// @Summary Remove a like
// @Tags engagement
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} models.EngagementCounts
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Not liked"
// @Security BearerAuth
// @Router /activities/{id}/like [delete]
func (s *Server) UnlikeActivity(c *fiber.Ctx) error {
	id, err := parseActivityID(c)
	if err != nil {
		return respondError(c, err)
	}
	counts, err := s.engagement.Unlike(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}

// RecordDownload handles POST /api/activities/:id/downloads
// @Summary Count a download
// @Description Authentication optional; every call counts. Private activities are only countable by their owner.
// @Tags engagement
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} models.EngagementCounts
// @Failure 404 {object} models.ErrorResponse
// @Router /activities/{id}/downloads [post]
func (s *Server) RecordDownload(c *fiber.Ctx) error {
	id, err := parseActivityID(c)
	if err != nil {
		return respondError(c, err)
	}
	counts, err := s.engagement.RecordDownload(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}
