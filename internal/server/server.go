// Package server exposes the engagement API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "retouchly/docs" // swagger docs
	"retouchly/internal/bootstrap"
	"retouchly/internal/cache"
	"retouchly/internal/config"
	"retouchly/internal/database"
	"retouchly/internal/events"
	"retouchly/internal/featureflags"
	"retouchly/internal/middleware"
	"retouchly/internal/models"
	"retouchly/internal/repository"
	"retouchly/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// EngagementAPI is the engagement surface the handlers depend on.
type EngagementAPI interface {
	Like(ctx context.Context, userID uint, activityID uuid.UUID) (*models.EngagementCounts, error)
	Unlike(ctx context.Context, userID uint, activityID uuid.UUID) (*models.EngagementCounts, error)
	IsLiked(ctx context.Context, userID uint, activityID uuid.UUID) (bool, error)
	SetVisibility(ctx context.Context, requester uint, activityID uuid.UUID, isPublic bool) (*models.Activity, error)
	RecordDownload(ctx context.Context, viewerID uint, activityID uuid.UUID) (*models.EngagementCounts, error)
}

// FeedAPI serves the public feed.
type FeedAPI interface {
	ListPublicFeed(ctx context.Context, req service.FeedRequest) (*service.FeedPage, error)
}

// ActivityAPI covers the activity lifecycle.
type ActivityAPI interface {
	Create(ctx context.Context, in service.CreateActivityInput) (*models.Activity, error)
	Get(ctx context.Context, viewerID uint, id uuid.UUID) (*models.FeedItem, error)
	ListMine(ctx context.Context, ownerID uint, limit, offset int) ([]models.Activity, error)
	Delete(ctx context.Context, requester uint, id uuid.UUID) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.Authenticator
	featureFlags   *featureflags.Manager
	events         events.Publisher
	engagement     EngagementAPI
	feed           FeedAPI
	activities     ActivityAPI
}

// NewServer connects to PostgreSQL and Redis, then wires the server.
func NewServer(ctx context.Context, cfg *config.Config, opts bootstrap.Options) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb), nil
}

// NewServerWithDeps wires a Server around already-initialized dependencies.
// redisClient may be nil; caching and rate limiting then fail open.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)
	c := cache.New(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	publisher := events.Discard
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEngagementTopic)
		middleware.Logger.Info("publishing engagement events", slog.String("topic", cfg.KafkaEngagementTopic))
	}

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("retouchly-api"),
		auth:           middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, redisClient),
		featureFlags:   flags,
		events:         publisher,
		engagement:     service.NewEngagementService(activityRepo, c).WithEvents(publisher),
		feed:           service.NewFeedService(activityRepo, c, flags, time.Duration(cfg.FeedCacheTTLSeconds)*time.Second),
		activities:     service.NewActivityService(activityRepo, userRepo, c),
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Retouchly Engagement API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes registers the API.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/feed", s.auth.Optional(), s.GetFeed)

	activities := api.Group("/activities")
	// /me before /:id so it is not parsed as an activity id.
	activities.Get("/me", s.auth.Required(), s.ListMyActivities)
	activities.Post("/", s.auth.Required(), s.CreateActivity)
	activities.Get("/:id", s.auth.Optional(), s.GetActivity)
	activities.Delete("/:id", s.auth.Required(), s.DeleteActivity)
	activities.Put("/:id/visibility", s.auth.Required(), s.SetVisibility)
	activities.Post("/:id/downloads", s.auth.Optional(), middleware.RateLimit(s.redis, 30, time.Minute, "download"), s.RecordDownload)

	activities.Get("/:id/like", s.auth.Required(), s.GetLikeStatus)
	activities.Post("/:id/like", s.auth.Required(), middleware.RateLimit(s.redis, 60, time.Minute, "like"), s.LikeActivity)
	activities.Delete("/:id/like", s.auth.Required(), s.UnlikeActivity)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports ready when PostgreSQL answers. Redis is reported
// but optional, since every Redis-backed feature fails open.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil || database.Ping(ctx, s.db) != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	if dbStatus != "healthy" {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start serves on the configured port until Shutdown.
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown drains HTTP connections, then closes PostgreSQL and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event publisher: %w", err))
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
