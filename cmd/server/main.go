package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/auth"
	"github.com/yukikurage/timesheet-api/internal/cache"
	"github.com/yukikurage/timesheet-api/internal/config"
	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/database"
	"github.com/yukikurage/timesheet-api/internal/handlers"
	"github.com/yukikurage/timesheet-api/internal/logger"
	"github.com/yukikurage/timesheet-api/internal/middleware"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/realtime"
	"github.com/yukikurage/timesheet-api/internal/repository"
	"github.com/yukikurage/timesheet-api/internal/services"
	"github.com/yukikurage/timesheet-api/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	gin.SetMode(cfg.Server.GinMode)
	isProduction := cfg.Server.GinMode == gin.ReleaseMode

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	if err := database.Connect(&cfg.Database, cfg.Log.Level, zlog); err != nil {
		return err
	}
	db := database.GetDB()

	// Run migrations
	if err := database.Migrate(db, zlog); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis backs both the session store and the tag cache. Outside release
	// mode the server still starts without it.
	var (
		store     sessions.Store
		cacheImpl cache.Store = cache.Noop{}
	)
	rdb, err := cache.NewRedisClient(&cfg.Redis, zlog)
	switch {
	case err == nil:
		defer rdb.Close()
		cacheImpl = cache.NewRedisStore(rdb, zlog)
		store, err = redisStore.NewStore(
			cfg.Redis.PoolSize,
			"tcp",
			cfg.Redis.Addr,
			"",
			cfg.Redis.Password,
			[]byte(cfg.Server.SessionSecret),
		)
		if err != nil {
			return fmt.Errorf("failed to create redis session store: %w", err)
		}
	case isProduction:
		return fmt.Errorf("redis is required in release mode: %w", err)
	default:
		zlog.Warn("Redis unavailable, using cookie sessions and no cache", zap.Error(err))
		store = cookie.NewStore([]byte(cfg.Server.SessionSecret))
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	var archive storage.Archive
	if cfg.Storage.Enabled() {
		minioArchive, err := storage.NewMinioArchive(ctx, &cfg.Storage, zlog)
		if err != nil {
			zlog.Warn("Report archiving disabled", zap.Error(err))
		} else {
			archive = minioArchive
		}
	}

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAI.APIKey != "" {
		aiService = services.NewAIService(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = cfg.Server.SessionSecret
	}
	tokens := auth.NewManager(jwtSecret, cfg.Auth.TokenTTL)

	hub := realtime.NewHub(zlog)
	presence := realtime.NewPresence(cfg.Realtime.OnlineThreshold)

	repo := repository.New(db)
	resolver := policy.NewResolver()
	auditService := services.NewAuditService(repo, resolver, zlog)
	notifier := services.NewNotifier(repo, hub, zlog)

	h := handlers.Handlers{
		Auth: handlers.NewAuthHandler(services.NewAuthService(repo, resolver, auditService, zlog), tokens, zlog),
		HR: handlers.NewHRTimesheetHandler(
			services.NewHRTimesheetService(repo, resolver, auditService, notifier, cacheImpl, zlog),
			services.NewExportService(repo, resolver, archive, zlog),
		),
		Timesheets: handlers.NewTimesheetHandler(services.NewTimesheetService(repo, resolver, auditService, notifier, cacheImpl, zlog)),
		Projects:   handlers.NewProjectHandler(services.NewProjectService(repo, resolver, auditService, notifier, cacheImpl, zlog)),
		Tasks:      handlers.NewTaskHandler(services.NewTaskService(repo, resolver, auditService, cacheImpl, aiService, zlog)),
		Audit:      handlers.NewAuditHandler(auditService),
		Realtime:   handlers.NewRealtimeHandler(hub, presence, notifier, cfg.Realtime.HeartbeatInterval, zlog),
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(zlog))
	if cfg.Server.Gzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/events"})))
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Timesheet API is running",
			"streams": hub.ConnectedUsers(),
		})
	})

	handlers.RegisterRoutes(r, h, middleware.RequireAuth(repo.User, tokens))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
