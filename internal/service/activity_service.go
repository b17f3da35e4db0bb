package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"retouchly/internal/cache"
	"retouchly/internal/middleware"
	"retouchly/internal/models"
	"retouchly/internal/observability"
	"retouchly/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const maxPromptLen = 2000

// ActivityService manages the activity lifecycle around engagement: tool
// pages record their outputs here and owners browse or delete them.
type ActivityService struct {
	activities repository.ActivityRepository
	users      repository.UserRepository
	cache      *cache.Cache
}

func NewActivityService(activities repository.ActivityRepository, users repository.UserRepository, c *cache.Cache) *ActivityService {
	return &ActivityService{activities: activities, users: users, cache: c}
}

// CreateActivityInput is what a tool page submits after inference succeeds.
type CreateActivityInput struct {
	OwnerID     uint
	ArtifactURL string
	Prompt      string
	Kind        string
	IsPublic    bool
}

func validateArtifactURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.NewValidationError("artifact_url must be an absolute http(s) URL")
	}
	return nil
}

func (s *ActivityService) Create(ctx context.Context, in CreateActivityInput) (_ *models.Activity, err error) {
	span, ctx := observability.NewSpan(ctx, "activity.create", attribute.String("activity.kind", in.Kind))
	defer span.Finish(&err)

	if err := requireUser(in.OwnerID); err != nil {
		return nil, err
	}
	kind := models.ActivityKind(in.Kind)
	if !kind.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown activity kind %q", in.Kind))
	}
	if err := validateArtifactURL(in.ArtifactURL); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(in.Prompt)
	if utf8.RuneCountInString(prompt) > maxPromptLen {
		return nil, models.NewValidationError(fmt.Sprintf("prompt too long (max %d characters)", maxPromptLen))
	}

	activity := &models.Activity{
		UserID:      in.OwnerID,
		ArtifactURL: strings.TrimSpace(in.ArtifactURL),
		Prompt:      prompt,
		Kind:        kind,
		IsPublic:    in.IsPublic,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}
	if activity.IsPublic {
		s.cache.BumpFeedVersion(ctx)
	}
	return activity, nil
}

// Get returns an activity with owner info. Private activities are only
// visible to their owner; everyone else gets NOT_FOUND.
func (s *ActivityService) Get(ctx context.Context, viewerID uint, id uuid.UUID) (*models.FeedItem, error) {
	var activity models.Activity
	_, err := s.cache.Aside(ctx, s.cache.ActivityCacheKey(ctx, id), &activity, cache.ActivityTTL, func() error {
		found, err := s.activities.GetByID(ctx, id)
		if err != nil {
			return err
		}
		activity = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !activity.IsPublic && activity.UserID != viewerID {
		return nil, models.NewNotFoundError("Activity", id)
	}

	item := &models.FeedItem{Activity: activity, Owner: s.ownerOf(ctx, activity.UserID)}
	if viewerID != 0 {
		liked, err := s.activities.IsLiked(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		item.Liked = liked
	}
	return item, nil
}

// ownerOf never fails: an unknown or unreachable owner renders as Anonymous.
func (s *ActivityService) ownerOf(ctx context.Context, userID uint) models.Owner {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			middleware.Logger.WarnContext(ctx, "owner lookup failed",
				slog.Uint64("owner_id", uint64(userID)), slog.String("error", err.Error()))
		}
		return models.Owner{ID: userID, Username: models.AnonymousOwner}
	}
	return models.Owner{ID: user.ID, Username: user.Username, Email: user.Email, AvatarURL: user.AvatarURL}
}

// ListMine returns the owner's activities, public and private, newest first.
func (s *ActivityService) ListMine(ctx context.Context, ownerID uint, limit, offset int) ([]models.Activity, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, err
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	return s.activities.ListByOwner(ctx, ownerID, limit, offset)
}

// Delete removes an owned activity together with its like memberships.
func (s *ActivityService) Delete(ctx context.Context, requester uint, id uuid.UUID) (err error) {
	span, ctx := observability.NewSpan(ctx, "activity.delete", attribute.String("activity.id", id.String()))
	defer span.Finish(&err)

	if _, err := requireOwner(ctx, s.activities, requester, id); err != nil {
		return err
	}
	if err := s.activities.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateActivity(ctx, id)
	return nil
}

// ReconcileLikeCounts repairs like_count drift and returns how many
// activities were corrected.
func (s *ActivityService) ReconcileLikeCounts(ctx context.Context) (_ int64, err error) {
	span, ctx := observability.NewSpan(ctx, "activity.reconcile_like_counts")
	defer span.Finish(&err)

	fixed, err := s.activities.ReconcileLikeCounts(ctx)
	if err != nil {
		return 0, err
	}
	if fixed > 0 {
		middleware.Logger.WarnContext(ctx, "like counts drifted from memberships", slog.Int64("fixed", fixed))
		s.cache.BumpFeedVersion(ctx)
	}
	return fixed, nil
}
