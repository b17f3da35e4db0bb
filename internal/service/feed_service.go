package service

import (
	"context"
	"fmt"
	"time"

	"retouchly/internal/cache"
	"retouchly/internal/featureflags"
	"retouchly/internal/models"
	"retouchly/internal/observability"
	"retouchly/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// FeedRequest is an unvalidated public feed query. An empty Sort means
// newest; an empty Kind means every kind. ViewerID 0 is anonymous.
type FeedRequest struct {
	Sort     string
	Kind     string
	Limit    int
	Offset   int
	ViewerID uint
}

// FeedPage is one page of the public feed.
type FeedPage struct {
	Items   []models.FeedItem `json:"items"`
	Sort    string            `json:"sort"`
	Kind    string            `json:"kind,omitempty"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"has_more"`
}

// FeedService serves the community feed. Pages are cached without viewer
// state; liked flags are applied per request.
type FeedService struct {
	activities repository.ActivityRepository
	cache      *cache.Cache
	flags      *featureflags.Manager
	ttl        time.Duration
}

// NewFeedService wires the feed. A non-positive ttl falls back to cache.FeedTTL.
func NewFeedService(activities repository.ActivityRepository, c *cache.Cache, flags *featureflags.Manager, ttl time.Duration) *FeedService {
	if ttl <= 0 {
		ttl = cache.FeedTTL
	}
	return &FeedService{activities: activities, cache: c, flags: flags, ttl: ttl}
}

func parseFeedQuery(req FeedRequest) (repository.FeedQuery, error) {
	q := repository.FeedQuery{
		Sort:   repository.FeedSort(req.Sort),
		Kind:   models.ActivityKind(req.Kind),
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if q.Sort == "" {
		q.Sort = repository.SortNewest
	}
	if !q.Sort.Valid() {
		return q, models.NewValidationError(fmt.Sprintf("sort must be one of %s, %s, %s",
			repository.SortNewest, repository.SortMostLiked, repository.SortMostDownloaded))
	}
	if q.Kind != "" && !q.Kind.Valid() {
		return q, models.NewValidationError(fmt.Sprintf("unknown activity kind %q", req.Kind))
	}
	return q, validatePage(q.Limit, q.Offset)
}

// ListPublicFeed returns public activities only, with owner display info
// and, for signed-in viewers, whether they liked each item.
func (s *FeedService) ListPublicFeed(ctx context.Context, req FeedRequest) (_ *FeedPage, err error) {
	q, err := parseFeedQuery(req)
	if err != nil {
		return nil, err
	}

	span, ctx := observability.NewSpan(ctx, "feed.list",
		attribute.String("feed.sort", string(q.Sort)),
		attribute.String("feed.kind", string(q.Kind)),
		attribute.Int("feed.limit", q.Limit),
		attribute.Int("feed.offset", q.Offset),
	)
	defer span.Finish(&err)

	page, err := s.loadPage(ctx, q, req.ViewerID)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, req.ViewerID, page.Items); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *FeedService) loadPage(ctx context.Context, q repository.FeedQuery, viewerID uint) (*FeedPage, error) {
	var page FeedPage
	fetch := func() error {
		// One extra row tells us whether another page exists.
		probe := q
		probe.Limit++
		items, err := s.activities.ListPublic(ctx, probe)
		if err != nil {
			return err
		}
		page = FeedPage{
			Items:  items,
			Sort:   string(q.Sort),
			Kind:   string(q.Kind),
			Limit:  q.Limit,
			Offset: q.Offset,
		}
		if len(items) > q.Limit {
			page.Items = items[:q.Limit]
			page.HasMore = true
		}
		return nil
	}

	if !s.flags.Enabled(featureflags.FeedCache, viewerID) {
		return &page, fetch()
	}

	key := s.cache.FeedPageKey(ctx, string(q.Sort), string(q.Kind), q.Limit, q.Offset)
	hit, err := s.cache.Aside(ctx, key, &page, s.ttl, fetch)
	if err != nil {
		return nil, err
	}
	if hit {
		observability.FeedCacheLookups.WithLabelValues("hit").Inc()
	} else {
		observability.FeedCacheLookups.WithLabelValues("miss").Inc()
	}
	return &page, nil
}

func (s *FeedService) markLiked(ctx context.Context, viewerID uint, items []models.FeedItem) error {
	for i := range items {
		items[i].Liked = false
	}
	if viewerID == 0 || len(items) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	liked, err := s.activities.GetLikedIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}

	set := make(map[uuid.UUID]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	for i := range items {
		_, items[i].Liked = set[items[i].ID]
	}
	return nil
}
