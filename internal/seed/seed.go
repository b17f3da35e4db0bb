package seed

import (
	"context"
	"fmt"
	"log/slog"

	"retouchly/internal/middleware"
	"retouchly/internal/models"
	"retouchly/internal/repository"

	"gorm.io/gorm"
)

// Summary reports what a seeding run created.
type Summary struct {
	Users      int
	Activities int
	Public     int
	Likes      int
	Downloads  int
}

// Seeder writes presets through the repositories, so like and download
// counters are maintained exactly as they are for real traffic.
type Seeder struct {
	db         *gorm.DB
	users      repository.UserRepository
	activities repository.ActivityRepository
	factory    *Factory
}

// NewSeeder binds a Seeder to db. seed fixes the generated content; zero
// means random.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{
		db:         db,
		users:      repository.NewUserRepository(db),
		activities: repository.NewActivityRepository(db),
		factory:    NewFactory(seed, 0),
	}
}

// ClearAll removes likes, activities and seeded users.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("clear likes: %w", err)
		}
		if err := all.Delete(&models.Activity{}).Error; err != nil {
			return fmt.Errorf("clear activities: %w", err)
		}
		if err := tx.Where("email LIKE ?", "%@seed.retouchly.dev").Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

// Apply creates the users, activities, likes and downloads p describes.
func (s *Seeder) Apply(ctx context.Context, p *Preset) (Summary, error) {
	var sum Summary
	s.factory.maxDays = p.MaxDays

	users := make([]*models.User, 0, p.Users)
	for i := 0; i < p.Users; i++ {
		u := s.factory.BuildUser(i)
		if err := s.users.Upsert(ctx, u); err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	kinds := p.kinds()
	for _, owner := range users {
		for j := 0; j < p.ActivitiesPerUser; j++ {
			a := s.factory.BuildActivity(owner, s.factory.Kind(kinds), s.factory.Chance(p.PublicRatio))
			if err := s.activities.Create(ctx, a); err != nil {
				return sum, fmt.Errorf("create activity: %w", err)
			}
			sum.Activities++
			if a.IsPublic {
				sum.Public++
			}

			for _, idx := range s.factory.Pick(len(users), s.factory.Intn(p.MaxLikesPerActivity)) {
				if _, err := s.activities.AddLike(ctx, users[idx].ID, a.ID); err != nil {
					return sum, fmt.Errorf("add like: %w", err)
				}
				sum.Likes++
			}
			for n := s.factory.Intn(p.MaxDownloadsPerActivity); n > 0; n-- {
				if _, err := s.activities.IncrementDownloads(ctx, a.ID); err != nil {
					return sum, fmt.Errorf("record download: %w", err)
				}
				sum.Downloads++
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seed preset applied",
		slog.String("preset", p.Name),
		slog.Int("users", sum.Users),
		slog.Int("activities", sum.Activities),
		slog.Int("public", sum.Public),
		slog.Int("likes", sum.Likes),
		slog.Int("downloads", sum.Downloads),
	)
	return sum, nil
}
