package models

import (
	"time"

	"github.com/google/uuid"
)

// Like represents a user's like on an activity.
// The (UserID, ActivityID) pair is the primary key, so a user can like an
// activity at most once.
type Like struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ActivityID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"activity_id"`
	CreatedAt  time.Time `json:"created_at"`

	Activity *Activity `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"-"`
}

// EngagementCounts is the counter snapshot returned after a mutation.
type EngagementCounts struct {
	ActivityID    uuid.UUID `json:"activity_id"`
	LikeCount     int64     `json:"like_count"`
	DownloadCount int64     `json:"download_count"`
	IsPublic      bool      `json:"is_public"`
	Liked         bool      `json:"liked"`
}
