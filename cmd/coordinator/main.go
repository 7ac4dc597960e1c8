package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/example/meeting-coordinator/internal/application"
	"github.com/example/meeting-coordinator/internal/calendar"
	"github.com/example/meeting-coordinator/internal/config"
	httptransport "github.com/example/meeting-coordinator/internal/http"
	"github.com/example/meeting-coordinator/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	userRepo := sqlite.NewUserRepository(pool)
	credentialRepo := sqlite.NewCredentialRepository(pool)
	ruleRepo := sqlite.NewRuleRepository(pool)
	blockedRepo := sqlite.NewBlockedTimeRepository(pool)
	permissionRepo := sqlite.NewPermissionRepository(pool)
	requestRepo := sqlite.NewRequestRepository(pool)
	meetingRepo := sqlite.NewMeetingRepository(pool)
	notificationRepo := sqlite.NewNotificationRepository(pool)

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarReadonlyScope},
	}
	tokens := calendar.NewTokenManager(oauthConfig, credentialRepo, "google")
	busyProvider := calendar.NewBusyProvider(calendar.NewGoogleSource(tokens))

	notificationService := application.NewNotificationService(notificationRepo, idGenerator, now, logger)
	permissionService := application.NewPermissionService(permissionRepo, requestRepo, userRepo, notificationService, cfg.OnceGrantTTL, cfg.EmailRequestTTL, idGenerator, now, logger)
	userService := application.NewUserService(userRepo, ruleRepo, permissionService, cfg.DefaultBufferMinutes, idGenerator, now, logger)
	availabilityService := application.NewAvailabilityService(ruleRepo, blockedRepo, userRepo, busyProvider, idGenerator, now, logger)
	meetingService := application.NewMeetingService(meetingRepo, userRepo, ruleRepo, blockedRepo, busyProvider, permissionService, notificationService, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Users:         httptransport.NewUserHandler(userService, logger),
		Availability:  httptransport.NewAvailabilityHandler(availabilityService, logger),
		Permissions:   httptransport.NewPermissionHandler(permissionService, logger),
		Meetings:      httptransport.NewMeetingHandler(meetingService, logger),
		Notifications: httptransport.NewNotificationHandler(notificationService, logger),
		Identity:      httptransport.RequireIdentity(logger),
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("coordinator API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
