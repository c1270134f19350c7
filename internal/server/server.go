package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"uniconnect.app/campus/internal/bootstrap"
	"uniconnect.app/campus/internal/config"
	"uniconnect.app/campus/internal/jobs"
	"uniconnect.app/campus/internal/middleware"

	"uniconnect.app/campus/internal/modules/notification/changefeed"
	notiHttp "uniconnect.app/campus/internal/modules/notification/delivery/http"
	notifRepo "uniconnect.app/campus/internal/modules/notification/repository"
	notifService "uniconnect.app/campus/internal/modules/notification/service"

	searchService "uniconnect.app/campus/internal/modules/search/service"
)

type Server struct {
	engine    *gin.Engine
	http      *http.Server
	repo      notifRepo.NotificationRepository
	inbox     *notifService.Inbox
	authoring *notifService.Authoring
	scheduler *jobs.Scheduler
	log       *zap.Logger
}

// NewServer wires the notification module. db may be nil when the memory
// store is configured. redisClient and amqpConn may be nil for a single
// instance; when both are set, change signals go through RabbitMQ.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, amqpConn *amqp091.Connection, log *zap.Logger) *Server {
	feed := newChangeFeed(cfg, redisClient, amqpConn, log)

	var notificationRepository notifRepo.NotificationRepository
	if db != nil {
		notificationRepository = notifRepo.NewNotificationRepository(db, feed, log)
	} else {
		notificationRepository = notifRepo.NewMemoryRepository(feed)
	}

	inboxOpts := []notifService.InboxOption{notifService.WithStudentRole(cfg.StudentRole)}
	authoringOpts := []notifService.AuthoringOption{}

	// Initialize Meilisearch
	if meiliHost := cfg.MeiliSearchHost; meiliHost != "" {
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		index := searchService.NewMeiliSearchService(meiliClient, log)
		inboxOpts = append(inboxOpts, notifService.WithSearchIndex(index))
		authoringOpts = append(authoringOpts, notifService.WithAuthoringIndex(index))
	}

	// Notification Module
	inbox := notifService.NewInbox(notificationRepository, log, inboxOpts...)
	authoring := notifService.NewAuthoring(notificationRepository, log, authoringOpts...)
	notificationHandler := notiHttp.NewNotificationHandler(inbox, authoring, log, originChecker(cfg.AllowedOrigins))

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	if cfg.ExpirySweepSchedule != "" {
		sweep := notifService.NewExpirySweep(notificationRepository, feed, log, cfg.ExpirySweepSchedule)
		if err := scheduler.Register(sweep); err != nil {
			log.Warn("expiry sweep disabled", zap.Error(err))
		}
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/metrics", "/healthz"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient, log)

	api := router.Group("/api")

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.GET("/notifications/search", notificationHandler.Search)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/:id", notificationHandler.GetNotification)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/:id/unread", notificationHandler.MarkAsUnread)
		protected.DELETE("/notifications/:id", notificationHandler.SoftDelete)
		protected.DELETE("/notifications/:id/permanent", notificationHandler.HardDelete)

		authors := protected.Group("/notifications")
		authors.Use(authMiddleware.RequireUserType(cfg.AuthorRoles...))
		authors.Use(rateLimiter.Limit("create_notification", cfg.AuthorCooldown))
		{
			authors.POST("", notificationHandler.CreateNotification)
			authors.POST("/assignment", notificationHandler.CreateAssignmentNotification)
			authors.POST("/exam", notificationHandler.CreateExamNotification)
			authors.POST("/material", notificationHandler.CreateMaterialNotification)
		}
	}

	return &Server{
		engine: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		repo:      notificationRepository,
		inbox:     inbox,
		authoring: authoring,
		scheduler: scheduler,
		log:       log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Seed fills an empty store with demo notifications.
func (s *Server) Seed(ctx context.Context) error {
	return bootstrap.SeedNotifications(ctx, s.repo, s.authoring, s.log)
}

func (s *Server) Run() error {
	s.scheduler.Start()
	s.log.Info("server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every live inbox subscription and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inbox.DisposeAll()
	s.scheduler.Stop(ctx)
	return s.http.Shutdown(ctx)
}

func newChangeFeed(cfg *config.Config, redisClient *redis.Client, amqpConn *amqp091.Connection, log *zap.Logger) changefeed.Feed {
	if amqpConn != nil {
		feed, err := changefeed.NewAMQPFeed(amqpConn, cfg.NotificationExchange)
		if err == nil {
			log.Info("notification change feed ready", zap.String("transport", "amqp"), zap.String("exchange", cfg.NotificationExchange))
			return feed
		}
		log.Warn("amqp change feed unavailable", zap.Error(err))
	}
	if redisClient != nil {
		log.Info("notification change feed ready", zap.String("transport", "redis"), zap.String("channel", cfg.NotificationChannel))
		return changefeed.NewRedisFeed(redisClient, cfg.NotificationChannel)
	}
	return changefeed.NewLocalFeed()
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// originChecker accepts websocket upgrades from the configured CORS origins
// and from non-browser clients that send no Origin header.
func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
