// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"strings"
	"time"

	"retouchly/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds users and activities with realistic-looking content.
// It does not persist anything.
type Factory struct {
	faker   *gofakeit.Faker
	maxDays int
	now     func() time.Time
}

// NewFactory returns a Factory. A zero seed picks a random one.
func NewFactory(seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 30
	}
	return &Factory{faker: gofakeit.New(seed), maxDays: maxDays, now: time.Now}
}

var promptStyles = map[models.ActivityKind][]string{
	models.KindImageGeneration:   {"oil painting of", "cinematic photo of", "watercolor sketch of", "isometric render of"},
	models.KindFaceRestoration:   {"restored portrait of", "sharpened old photo of"},
	models.KindBackgroundRemoval: {"cutout of", "transparent background for"},
	models.KindImageOverlay:      {"poster overlay on", "caption overlay on"},
	models.KindVoiceGeneration:   {"narration of", "voiceover for"},
}

// BuildUser returns a user whose username and email are unique for n.
func (f *Factory) BuildUser(n int) *models.User {
	username := strings.ToLower(fmt.Sprintf("%s_%d", f.faker.Username(), n))
	return &models.User{
		Username:  username,
		Email:     username + "@seed.retouchly.dev",
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
}

// BuildActivity returns an activity owned by owner with a created_at within
// the factory's day window.
func (f *Factory) BuildActivity(owner *models.User, kind models.ActivityKind, public bool) *models.Activity {
	styles := promptStyles[kind]
	style := styles[f.faker.Number(0, len(styles)-1)]

	back := time.Duration(f.faker.Number(0, f.maxDays*24*60-1)) * time.Minute
	return &models.Activity{
		UserID:      owner.ID,
		ArtifactURL: f.artifactURL(kind),
		Prompt:      fmt.Sprintf("%s %s %s", style, f.faker.Adjective(), f.faker.Noun()),
		Kind:        kind,
		IsPublic:    public,
		CreatedAt:   f.now().Add(-back),
	}
}

func (f *Factory) artifactURL(kind models.ActivityKind) string {
	if kind == models.KindVoiceGeneration {
		return fmt.Sprintf("https://cdn.retouchly.dev/audio/%s.mp3", f.faker.UUID())
	}
	return fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
}

// Pick returns up to n distinct indexes below size.
func (f *Factory) Pick(size, n int) []int {
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}
	return f.faker.Rand.Perm(size)[:n]
}

// Chance reports true with probability p.
func (f *Factory) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

// Intn returns a value in [0, n].
func (f *Factory) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return f.faker.Number(0, n)
}

// Kind picks one of kinds.
func (f *Factory) Kind(kinds []models.ActivityKind) models.ActivityKind {
	return kinds[f.faker.Number(0, len(kinds)-1)]
}
