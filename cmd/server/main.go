package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-report-api/internal/config"
	"github.com/yukikurage/field-report-api/internal/database"
	"github.com/yukikurage/field-report-api/internal/logger"
	"github.com/yukikurage/field-report-api/internal/notify"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/router"
	"github.com/yukikurage/field-report-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	gin.SetMode(cfg.Server.Mode)

	// Connect to database
	db, err := database.Connect(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to create session store", zap.Error(err))
	}

	publisher := newPublisher(cfg, zapLogger)
	defer publisher.Close()

	store := repository.NewStore(db)
	allocator := services.NewAllocator(store.Tenants(), store.Counters(), store.Projects(), cfg.Numbering, zapLogger)
	notificationService := services.NewNotificationService(store, publisher, zapLogger)

	r := router.New(router.Deps{
		Auth:            services.NewAuthService(store, zapLogger),
		Tenants:         services.NewTenantService(store, zapLogger),
		Projects:        services.NewProjectService(store.Projects(), allocator, cfg.Numbering.InsertAttempts, zapLogger),
		Tasks:           services.NewTaskService(store, notificationService, cfg.Lifecycle.OperationTimeout, zapLogger),
		Notifications:   notificationService,
		SessionStore:    sessionStore,
		OnboardingToken: cfg.Onboarding.Token,
		Logger:          zapLogger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shut down", zap.Error(err))
	}
}

// newSessionStore builds the redis or cookie backed session store.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.Session.Store {
	case "cookie":
		store = cookie.NewStore([]byte(cfg.Session.Secret))
	default:
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		rs, err := redisStore.NewStore(
			cfg.Redis.PoolSize,
			"tcp",
			redisAddr,
			cfg.Redis.Password,
			[]byte(cfg.Session.Secret),
		)
		if err != nil {
			return nil, err
		}
		store = rs
	}

	isProduction := cfg.Server.Mode == gin.ReleaseMode
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// newPublisher connects to NATS when configured. Without it notifications
// stay in the inbox only.
func newPublisher(cfg *config.Config, log *zap.Logger) notify.Publisher {
	if cfg.NATS.URL == "" {
		return notify.NopPublisher{}
	}
	publisher, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
	if err != nil {
		log.Warn("NATS unavailable, live notifications disabled", zap.Error(err))
		return notify.NopPublisher{}
	}
	return publisher
}
