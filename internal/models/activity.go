// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityKind identifies which AI tool produced an activity's artifact.
type ActivityKind string

const (
	KindImageGeneration   ActivityKind = "image_generation"
	KindFaceRestoration   ActivityKind = "face_restoration"
	KindBackgroundRemoval ActivityKind = "background_removal"
	KindImageOverlay      ActivityKind = "image_overlay"
	KindVoiceGeneration   ActivityKind = "voice_generation"
)

// ActivityKinds lists every supported kind in display order.
var ActivityKinds = []ActivityKind{
	KindImageGeneration,
	KindFaceRestoration,
	KindBackgroundRemoval,
	KindImageOverlay,
	KindVoiceGeneration,
}

// Valid reports whether k is one of the supported kinds.
func (k ActivityKind) Valid() bool {
	for _, known := range ActivityKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Activity is one persisted AI-generated artifact and its social metadata.
// LikeCount is a cached aggregate of the likes table and is only written by
// the engagement service.
type Activity struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uint         `gorm:"not null;index" json:"user_id"`
	ArtifactURL   string       `gorm:"type:text;not null" json:"artifact_url"`
	Prompt        string       `gorm:"type:text" json:"prompt"`
	Kind          ActivityKind `gorm:"size:32;not null;index" json:"kind"`
	IsPublic      bool         `gorm:"not null;default:false;index" json:"is_public"`
	LikeCount     int64        `gorm:"not null;default:0" json:"like_count"`
	DownloadCount int64        `gorm:"not null;default:0" json:"download_count"`
	CreatedAt     time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// BeforeCreate assigns a random ID when none was provided.
func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AnonymousOwner is the display name used when an owner cannot be resolved.
const AnonymousOwner = "Anonymous"

// Owner is the public display info joined onto feed items.
type Owner struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// FeedItem is an activity as rendered in the community feed.
type FeedItem struct {
	Activity
	Owner Owner `json:"owner"`
	// Liked is computed for the requesting viewer; false for anonymous viewers.
	Liked bool `json:"liked"`
}
