package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	_ "github.com/noah-isme/shootdesk-api/api/swagger"
	"github.com/noah-isme/shootdesk-api/internal/handler"
	"github.com/noah-isme/shootdesk-api/internal/repository"
	"github.com/noah-isme/shootdesk-api/internal/service"
	"github.com/noah-isme/shootdesk-api/pkg/cache"
	"github.com/noah-isme/shootdesk-api/pkg/checkpoint"
	"github.com/noah-isme/shootdesk-api/pkg/config"
	"github.com/noah-isme/shootdesk-api/pkg/database"
	"github.com/noah-isme/shootdesk-api/pkg/logger"
	"github.com/noah-isme/shootdesk-api/pkg/notify"
)

// @title ShootDesk API
// @version 1.0.0
// @description Studio and lecture shoot booking, approval and on-site progress tracking.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const progressSessionTTL = 36 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	metrics := service.NewMetricsService()
	dispatcher, closePublisher := newDispatcher(cfg, metrics, logr)
	defer closePublisher()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	app := buildApp(cfg, db, redisClient, metrics, dispatcher, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, app, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newDispatcher connects the RabbitMQ publisher when notifications are enabled.
func newDispatcher(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.NotificationDispatcher, func()) {
	dispatcherCfg := service.NotificationDispatcherConfig{
		Enabled:    cfg.Notifications.Enabled,
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}
	if !cfg.Notifications.Enabled {
		return service.NewNotificationDispatcher(nil, metrics, logr, dispatcherCfg), func() {}
	}

	publisher, err := notify.NewPublisher(cfg.Notifications.RabbitURL, cfg.Notifications.Exchange)
	if err != nil {
		logr.Warn("notifications disabled, publisher unavailable", zap.Error(err))
		return service.NewNotificationDispatcher(nil, metrics, logr, dispatcherCfg), func() {}
	}
	closeFn := func() {
		if err := publisher.Close(); err != nil {
			logr.Warn("failed to close publisher", zap.Error(err))
		}
	}
	return service.NewNotificationDispatcher(publisher, metrics, logr, dispatcherCfg), closeFn
}

type app struct {
	auth         *handler.AuthHandler
	bookings     *handler.BookingHandler
	assignments  *handler.AssignmentHandler
	availability *handler.AvailabilityHandler
	progress     *handler.ProgressHandler
	metrics      *handler.MetricsHandler
	tokens       *service.AuthService
	metricsSvc   *service.MetricsService
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, dispatcher *service.NotificationDispatcher, logr *zap.Logger) *app {
	validate := validator.New()
	loc := cfg.Lock.Location()

	bookingRepo := repository.NewBookingRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewProgressSessionRepository(redisClient, progressSessionTTL)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	feedRepo := repository.NewChangeFeedRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Roster.CacheTTL, logr, cfg.Roster.CacheEnabled)
	history := service.NewHistoryLog(historyRepo, logr)
	feed := service.NewChangeFeed(feedRepo, logr)
	machine := service.NewScheduleStateMachine(service.NewApprovalLockPolicy(loc))

	bookingSvc := service.NewBookingService(bookingRepo, db, machine, history, validate, logr,
		service.WithBookingNotifier(dispatcher),
		service.WithBookingChangeFeed(feed),
		service.WithBookingMetrics(metrics),
	)
	assignmentSvc := service.NewAssignmentService(service.AssignmentServiceConfig{
		Bookings:     bookingSvc,
		DayBookings:  bookingRepo,
		Operators:    operatorRepo,
		Locations:    locationRepo,
		Availability: availabilityRepo,
		Resolver:     service.NewAssignmentResolver(language.Korean),
		Cache:        cacheSvc,
		Notifier:     dispatcher,
		Validator:    validate,
		Logger:       logr,
		RosterTTL:    cfg.Roster.CacheTTL,
	})
	progressSvc := service.NewProgressService(service.ProgressServiceConfig{
		Sessions:       sessionRepo,
		Bookings:       bookingRepo,
		Locations:      locationRepo,
		History:        history,
		Notifier:       dispatcher,
		Signer:         checkpoint.NewSigner(cfg.Checkpoint.Secret, cfg.Checkpoint.ToleranceMinutes),
		Metrics:        metrics,
		GeofenceMeters: cfg.Checkpoint.GeofenceMeters,
		Location:       loc,
		Validator:      validate,
		Logger:         logr,
	})
	bulk := service.NewBulkApprovalCoordinator(bookingSvc, metrics, logr, service.BulkApprovalConfig{
		Concurrency: cfg.Bulk.Concurrency,
		MaxItems:    cfg.Bulk.MaxItems,
	})
	exporter := service.NewExportService(bookingSvc, operatorRepo, validate, service.ExportConfig{Title: cfg.Export.Title}, logr, nil, nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	checks := map[string]handler.HealthCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}

	return &app{
		auth:         handler.NewAuthHandler(authSvc),
		bookings:     handler.NewBookingHandler(bookingSvc, bulk, exporter, feed),
		assignments:  handler.NewAssignmentHandler(assignmentSvc),
		availability: handler.NewAvailabilityHandler(service.NewAvailabilityService(availabilityRepo, validate, loc, logr)),
		progress:     handler.NewProgressHandler(progressSvc),
		metrics:      handler.NewMetricsHandler(metrics, checks),
		tokens:       authSvc,
		metricsSvc:   metrics,
	}
}
