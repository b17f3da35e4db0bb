// Package service holds the engagement, feed and activity business logic.
package service

import (
	"context"
	"errors"
	"log/slog"

	"retouchly/internal/cache"
	"retouchly/internal/events"
	"retouchly/internal/middleware"
	"retouchly/internal/models"
	"retouchly/internal/observability"
	"retouchly/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// EngagementService is the only writer of like memberships, like and
// download counters, and visibility.
type EngagementService struct {
	activities repository.ActivityRepository
	cache      *cache.Cache
	events     events.Publisher
}

// NewEngagementService wires the service. c may wrap a nil Redis client.
func NewEngagementService(activities repository.ActivityRepository, c *cache.Cache) *EngagementService {
	return &EngagementService{activities: activities, cache: c, events: events.Discard}
}

// WithEvents publishes every committed change to p.
func (s *EngagementService) WithEvents(p events.Publisher) *EngagementService {
	if p != nil {
		s.events = p
	}
	return s
}

// committed runs after a successful write: it drops stale cache entries and
// announces the change. Neither step can fail the operation.
func (s *EngagementService) committed(ctx context.Context, typ events.Type, actor uint, a *models.Activity) {
	s.cache.InvalidateActivity(ctx, a.ID)

	err := s.events.Publish(ctx, events.Event{
		Type:          typ,
		ActivityID:    a.ID,
		OwnerID:       a.UserID,
		ActorID:       actor,
		LikeCount:     a.LikeCount,
		DownloadCount: a.DownloadCount,
		IsPublic:      a.IsPublic,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "engagement event not published",
			slog.String("type", string(typ)),
			slog.String("activity_id", a.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func countsOf(a *models.Activity, liked bool) *models.EngagementCounts {
	return &models.EngagementCounts{
		ActivityID:    a.ID,
		LikeCount:     a.LikeCount,
		DownloadCount: a.DownloadCount,
		IsPublic:      a.IsPublic,
		Liked:         liked,
	}
}

func requireUser(userID uint) error {
	if userID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}

// requireOwner loads the activity and fails with UNAUTHORIZED unless
// requester owns it. Every owner-only operation goes through here.
func requireOwner(ctx context.Context, activities repository.ActivityRepository, requester uint, id uuid.UUID) (*models.Activity, error) {
	if err := requireUser(requester); err != nil {
		return nil, err
	}
	activity, err := activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity.UserID != requester {
		return nil, models.NewUnauthorizedError("Only the owner can modify this activity")
	}
	return activity, nil
}

// visibleTo loads the activity; a private one reads as NOT_FOUND to anyone
// but its owner, matching ActivityService.Get.
func visibleTo(ctx context.Context, activities repository.ActivityRepository, viewer uint, id uuid.UUID) (*models.Activity, error) {
	activity, err := activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !activity.IsPublic && activity.UserID != viewer {
		return nil, models.NewNotFoundError("Activity", id)
	}
	return activity, nil
}

func (s *EngagementService) Like(ctx context.Context, userID uint, activityID uuid.UUID) (_ *models.EngagementCounts, err error) {
	span, ctx := observability.NewSpan(ctx, "engagement.like", attribute.String("activity.id", activityID.String()))
	defer span.Finish(&err)
	defer func() { observability.RecordEngagement("like", err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := visibleTo(ctx, s.activities, userID, activityID); err != nil {
		return nil, err
	}
	activity, err := s.activities.AddLike(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, events.Liked, userID, activity)
	return countsOf(activity, true), nil
}

func (s *EngagementService) Unlike(ctx context.Context, userID uint, activityID uuid.UUID) (_ *models.EngagementCounts, err error) {
	span, ctx := observability.NewSpan(ctx, "engagement.unlike", attribute.String("activity.id", activityID.String()))
	defer span.Finish(&err)
	defer func() { observability.RecordEngagement("unlike", err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := visibleTo(ctx, s.activities, userID, activityID); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		// A like placed while the activity was public can still be withdrawn.
		liked, lerr := s.activities.IsLiked(ctx, userID, activityID)
		if lerr != nil {
			return nil, lerr
		}
		if !liked {
			return nil, err
		}
	}
	activity, err := s.activities.RemoveLike(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, events.Unliked, userID, activity)
	return countsOf(activity, false), nil
}

func (s *EngagementService) IsLiked(ctx context.Context, userID uint, activityID uuid.UUID) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	return s.activities.IsLiked(ctx, userID, activityID)
}

// SetVisibility publishes or hides an activity. Only the owner may call it;
// repeating the current value succeeds.
func (s *EngagementService) SetVisibility(ctx context.Context, requester uint, activityID uuid.UUID, isPublic bool) (_ *models.Activity, err error) {
	span, ctx := observability.NewSpan(ctx, "engagement.set_visibility",
		attribute.String("activity.id", activityID.String()),
		attribute.Bool("activity.public", isPublic),
	)
	defer span.Finish(&err)
	defer func() { observability.RecordEngagement("set_visibility", err) }()

	if _, err := requireOwner(ctx, s.activities, requester, activityID); err != nil {
		return nil, err
	}
	activity, err := s.activities.SetVisibility(ctx, activityID, isPublic)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, events.VisibilityChanged, requester, activity)
	return activity, nil
}

// RecordDownload counts one download. Anyone may call it and repeats count;
// viewerID is 0 for anonymous callers and only matters for private activities.
func (s *EngagementService) RecordDownload(ctx context.Context, viewerID uint, activityID uuid.UUID) (_ *models.EngagementCounts, err error) {
	span, ctx := observability.NewSpan(ctx, "engagement.record_download", attribute.String("activity.id", activityID.String()))
	defer span.Finish(&err)
	defer func() { observability.RecordEngagement("download", err) }()

	if _, err := visibleTo(ctx, s.activities, viewerID, activityID); err != nil {
		return nil, err
	}
	activity, err := s.activities.IncrementDownloads(ctx, activityID)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, events.Downloaded, 0, activity)
	return countsOf(activity, false), nil
}
