// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"fmt"

	"retouchly/internal/models"
	"retouchly/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedSort selects the ordering of the public feed.
type FeedSort string

const (
	SortNewest         FeedSort = "newest"
	SortMostLiked      FeedSort = "most_liked"
	SortMostDownloaded FeedSort = "most_downloaded"
)

// Valid reports whether s is a supported sort key.
func (s FeedSort) Valid() bool {
	switch s {
	case SortNewest, SortMostLiked, SortMostDownloaded:
		return true
	}
	return false
}

// FeedQuery is a validated public feed request. An empty Kind means all kinds.
type FeedQuery struct {
	Sort   FeedSort
	Kind   models.ActivityKind
	Limit  int
	Offset int
}

// ActivityRepository persists activities and like memberships. Every counter
// change is a single server-side SQL expression; nothing reads a counter and
// writes it back.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Activity, error)
	ListPublic(ctx context.Context, q FeedQuery) ([]models.FeedItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetVisibility(ctx context.Context, id uuid.UUID, isPublic bool) (*models.Activity, error)
	IncrementDownloads(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	AddLike(ctx context.Context, userID uint, id uuid.UUID) (*models.Activity, error)
	RemoveLike(ctx context.Context, userID uint, id uuid.UUID) (*models.Activity, error)
	IsLiked(ctx context.Context, userID uint, id uuid.UUID) (bool, error)
	GetLikedIDs(ctx context.Context, userID uint, ids []uuid.UUID) ([]uuid.UUID, error)
	ReconcileLikeCounts(ctx context.Context) (int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns a GORM-backed ActivityRepository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	defer observability.TrackQuery("insert", "activities")()
	return classify(r.db.WithContext(ctx).Create(activity).Error, "Activity", activity.ID)
}

func (r *activityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	defer observability.TrackQuery("select", "activities")()
	return findActivity(r.db.WithContext(ctx), id)
}

func findActivity(db *gorm.DB, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := db.First(&activity, "id = ?", id).Error; err != nil {
		return nil, classify(err, "Activity", id)
	}
	return &activity, nil
}

func (r *activityRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Activity, error) {
	defer observability.TrackQuery("select", "activities")()
	var activities []models.Activity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error
	if err != nil {
		return nil, classify(err, "Activity", ownerID)
	}
	return activities, nil
}

// feedRow is one activity joined with its possibly missing owner.
type feedRow struct {
	models.Activity
	OwnerID        *uint
	OwnerUsername  *string
	OwnerEmail     *string
	OwnerAvatarURL *string
}

func (row feedRow) item() models.FeedItem {
	item := models.FeedItem{Activity: row.Activity}
	if row.OwnerID == nil {
		item.Owner = models.Owner{ID: row.UserID, Username: models.AnonymousOwner}
		return item
	}
	item.Owner = models.Owner{ID: *row.OwnerID, Username: deref(row.OwnerUsername)}
	item.Owner.Email = deref(row.OwnerEmail)
	item.Owner.AvatarURL = deref(row.OwnerAvatarURL)
	if item.Owner.Username == "" {
		item.Owner.Username = models.AnonymousOwner
	}
	return item
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// feedOrder lists ORDER BY terms per sort key. created_at and id break ties
// so pagination is stable.
var feedOrder = map[FeedSort][]string{
	SortNewest:         {"a.created_at DESC", "a.id DESC"},
	SortMostLiked:      {"a.like_count DESC", "a.created_at DESC", "a.id DESC"},
	SortMostDownloaded: {"a.download_count DESC", "a.created_at DESC", "a.id DESC"},
}

// ListPublic returns one page of public activities. Owners are LEFT JOINed
// so an activity whose owner row is gone is still listed.
func (r *activityRepository) ListPublic(ctx context.Context, q FeedQuery) ([]models.FeedItem, error) {
	defer observability.TrackQuery("feed", "activities")()

	order, ok := feedOrder[q.Sort]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unsupported sort %q", q.Sort))
	}

	query := r.db.WithContext(ctx).
		Table("activities AS a").
		Select("a.*, u.id AS owner_id, u.username AS owner_username, u.email AS owner_email, u.avatar_url AS owner_avatar_url").
		Joins("LEFT JOIN users u ON u.id = a.user_id").
		Where("a.is_public = ?", true)
	if q.Kind != "" {
		query = query.Where("a.kind = ?", q.Kind)
	}
	for _, term := range order {
		query = query.Order(term)
	}

	var rows []feedRow
	if err := query.Limit(q.Limit).Offset(q.Offset).Scan(&rows).Error; err != nil {
		return nil, classify(err, "Activity", "feed")
	}

	items := make([]models.FeedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items, nil
}

// Delete removes the activity and its memberships in one transaction.
func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer observability.TrackQuery("delete", "activities")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Activity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return classify(err, "Activity", id)
}

func (r *activityRepository) SetVisibility(ctx context.Context, id uuid.UUID, isPublic bool) (*models.Activity, error) {
	defer observability.TrackQuery("update", "activities")()
	var out *models.Activity
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Activity{}).Where("id = ?", id).Update("is_public", isPublic)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var err error
		out, err = findActivity(tx, id)
		return err
	})
	if err != nil {
		return nil, classify(err, "Activity", id)
	}
	return out, nil
}

func (r *activityRepository) IncrementDownloads(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	defer observability.TrackQuery("update", "activities")()
	var out *models.Activity
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Activity{}).Where("id = ?", id).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var err error
		out, err = findActivity(tx, id)
		return err
	})
	if err != nil {
		return nil, classify(err, "Activity", id)
	}
	return out, nil
}

// AddLike inserts the membership and bumps like_count in one transaction.
// A membership that already exists yields ALREADY_LIKED and leaves the
// counter untouched.
func (r *activityRepository) AddLike(ctx context.Context, userID uint, id uuid.UUID) (*models.Activity, error) {
	defer observability.TrackQuery("like", "likes")()
	var out *models.Activity
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findActivity(tx, id); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{UserID: userID, ActivityID: id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewAlreadyLikedError()
		}

		if err := tx.Model(&models.Activity{}).Where("id = ?", id).
			UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
			return err
		}
		var err error
		out, err = findActivity(tx, id)
		return err
	})
	if err != nil {
		return nil, classify(err, "Activity", id)
	}
	return out, nil
}

// RemoveLike deletes the membership and decrements like_count, clamped at
// zero, in one transaction. A missing membership yields NOT_LIKED.
func (r *activityRepository) RemoveLike(ctx context.Context, userID uint, id uuid.UUID) (*models.Activity, error) {
	defer observability.TrackQuery("unlike", "likes")()
	var out *models.Activity
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findActivity(tx, id); err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND activity_id = ?", userID, id).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotLikedError()
		}

		if err := tx.Model(&models.Activity{}).Where("id = ?", id).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error; err != nil {
			return err
		}
		var err error
		out, err = findActivity(tx, id)
		return err
	})
	if err != nil {
		return nil, classify(err, "Activity", id)
	}
	return out, nil
}

func (r *activityRepository) IsLiked(ctx context.Context, userID uint, id uuid.UUID) (bool, error) {
	defer observability.TrackQuery("select", "likes")()
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND activity_id = ?", userID, id).
		Count(&count).Error
	if err != nil {
		return false, classify(err, "Like", id)
	}
	return count > 0, nil
}

// GetLikedIDs returns the subset of ids that userID has liked.
func (r *activityRepository) GetLikedIDs(ctx context.Context, userID uint, ids []uuid.UUID) ([]uuid.UUID, error) {
	if userID == 0 || len(ids) == 0 {
		return nil, nil
	}
	defer observability.TrackQuery("select", "likes")()
	var liked []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND activity_id IN ?", userID, ids).
		Pluck("activity_id", &liked).Error
	if err != nil {
		return nil, classify(err, "Like", userID)
	}
	return liked, nil
}

// ReconcileLikeCounts recomputes like_count from memberships wherever the
// two disagree and returns the number of corrected activities.
func (r *activityRepository) ReconcileLikeCounts(ctx context.Context) (int64, error) {
	defer observability.TrackQuery("reconcile", "activities")()
	res := r.db.WithContext(ctx).Exec(`
UPDATE activities
SET like_count = (SELECT COUNT(*) FROM likes WHERE likes.activity_id = activities.id)
WHERE like_count <> (SELECT COUNT(*) FROM likes WHERE likes.activity_id = activities.id)`)
	if res.Error != nil {
		return 0, classify(res.Error, "Activity", "all")
	}
	return res.RowsAffected, nil
}
