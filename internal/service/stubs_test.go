package service

import (
	"context"
	"strings"
	"testing"

	"retouchly/internal/database"
	"retouchly/internal/models"
	"retouchly/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// activityRepoStub is a stub for repository.ActivityRepository.
type activityRepoStub struct {
	createFn              func(context.Context, *models.Activity) error
	getByIDFn             func(context.Context, uuid.UUID) (*models.Activity, error)
	listByOwnerFn         func(context.Context, uint, int, int) ([]models.Activity, error)
	listPublicFn          func(context.Context, repository.FeedQuery) ([]models.FeedItem, error)
	deleteFn              func(context.Context, uuid.UUID) error
	setVisibilityFn       func(context.Context, uuid.UUID, bool) (*models.Activity, error)
	incrementDownloadsFn  func(context.Context, uuid.UUID) (*models.Activity, error)
	addLikeFn             func(context.Context, uint, uuid.UUID) (*models.Activity, error)
	removeLikeFn          func(context.Context, uint, uuid.UUID) (*models.Activity, error)
	isLikedFn             func(context.Context, uint, uuid.UUID) (bool, error)
	getLikedIDsFn         func(context.Context, uint, []uuid.UUID) ([]uuid.UUID, error)
	reconcileLikeCountsFn func(context.Context) (int64, error)
}

func (s *activityRepoStub) Create(ctx context.Context, a *models.Activity) error {
	return s.createFn(ctx, a)
}
func (s *activityRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	return s.getByIDFn(ctx, id)
}
func (s *activityRepoStub) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Activity, error) {
	return s.listByOwnerFn(ctx, ownerID, limit, offset)
}
func (s *activityRepoStub) ListPublic(ctx context.Context, q repository.FeedQuery) ([]models.FeedItem, error) {
	return s.listPublicFn(ctx, q)
}
func (s *activityRepoStub) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}
func (s *activityRepoStub) SetVisibility(ctx context.Context, id uuid.UUID, isPublic bool) (*models.Activity, error) {
	return s.setVisibilityFn(ctx, id, isPublic)
}
func (s *activityRepoStub) IncrementDownloads(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	return s.incrementDownloadsFn(ctx, id)
}
func (s *activityRepoStub) AddLike(ctx context.Context, userID uint, id uuid.UUID) (*models.Activity, error) {
	return s.addLikeFn(ctx, userID, id)
}
func (s *activityRepoStub) RemoveLike(ctx context.Context, userID uint, id uuid.UUID) (*models.Activity, error) {
	return s.removeLikeFn(ctx, userID, id)
}
func (s *activityRepoStub) IsLiked(ctx context.Context, userID uint, id uuid.UUID) (bool, error) {
	return s.isLikedFn(ctx, userID, id)
}
func (s *activityRepoStub) GetLikedIDs(ctx context.Context, userID uint, ids []uuid.UUID) ([]uuid.UUID, error) {
	return s.getLikedIDsFn(ctx, userID, ids)
}
func (s *activityRepoStub) ReconcileLikeCounts(ctx context.Context) (int64, error) {
	return s.reconcileLikeCountsFn(ctx)
}

func noopActivityRepo() *activityRepoStub {
	return &activityRepoStub{
		createFn:  func(_ context.Context, _ *models.Activity) error { return nil },
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.Activity, error) { return &models.Activity{ID: id, IsPublic: true}, nil },
		listByOwnerFn: func(_ context.Context, _ uint, _, _ int) ([]models.Activity, error) {
			return nil, nil
		},
		listPublicFn: func(_ context.Context, _ repository.FeedQuery) ([]models.FeedItem, error) {
			return []models.FeedItem{}, nil
		},
		deleteFn: func(_ context.Context, _ uuid.UUID) error { return nil },
		setVisibilityFn: func(_ context.Context, id uuid.UUID, isPublic bool) (*models.Activity, error) {
			return &models.Activity{ID: id, IsPublic: isPublic}, nil
		},
		incrementDownloadsFn: func(_ context.Context, id uuid.UUID) (*models.Activity, error) {
			return &models.Activity{ID: id, DownloadCount: 1}, nil
		},
		addLikeFn: func(_ context.Context, _ uint, id uuid.UUID) (*models.Activity, error) {
			return &models.Activity{ID: id, LikeCount: 1}, nil
		},
		removeLikeFn: func(_ context.Context, _ uint, id uuid.UUID) (*models.Activity, error) {
			return &models.Activity{ID: id}, nil
		},
		isLikedFn:             func(_ context.Context, _ uint, _ uuid.UUID) (bool, error) { return false, nil },
		getLikedIDsFn:         func(_ context.Context, _ uint, _ []uuid.UUID) ([]uuid.UUID, error) { return nil, nil },
		reconcileLikeCountsFn: func(_ context.Context) (int64, error) { return 0, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) Upsert(_ context.Context, _ *models.User) error { return nil }

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
}

// setupSQLiteDB returns a migrated in-memory database private to the test.
// A single connection serializes transactions the way row locks would.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// setupMockDB returns a PostgreSQL-dialect GORM handle over sqlmock, for
// asserting the statements a service call produces.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}
