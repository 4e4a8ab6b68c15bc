package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/handlers"
	redisstore "github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/redis"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/router"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/scheduler"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/updates"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/pkg/config"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/pkg/logger"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const shutdownGrace = 15 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()
	if !cfg.EnvFileLoaded {
		zlog.Info("no .env file found, assuming environment variables are set")
	}

	// Initialize database connections
	db, err := config.InitDB(cfg, logger.Component(zlog, "database"))
	if err != nil {
		zlog.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoDB := db.Mongo.Database(cfg.MongoDatabase)
	updateRepo := repositories.NewMongoUpdateRepository(mongoDB)
	pinRepo := repositories.NewMongoPinRepository(mongoDB)
	if err := ensureIndexes(ctx, updateRepo, pinRepo); err != nil {
		zlog.Fatal("failed to ensure indexes", zap.Error(err))
	}

	preferences, err := preferenceStore(cfg, db)
	if err != nil {
		zlog.Fatal("failed to prepare preference store", zap.Error(err))
	}

	engine := updates.NewEngine(updateRepo, preferences, logger.Component(zlog, "fanout"), updates.Options{
		Timeout:       cfg.FanoutTimeout,
		BodyMaxLength: cfg.BodyMaxLength,
	})
	dispatcher := updates.NewDispatcher(engine, logger.Component(zlog, "dispatcher"), cfg.FanoutQueueSize, cfg.FanoutWorkers)

	schedOpts := scheduler.Options{
		Interval:     cfg.SweepInterval,
		InitialDelay: cfg.SweepInitialDelay,
		Policy:       cfg.MissedWindowPolicy,
		MaxCatchUp:   cfg.MaxCatchUp,
	}
	if db.Redis != nil {
		schedOpts.Locker = redisstore.NewLock(db.Redis, "update-sweep")
		schedOpts.Watermark = redisstore.NewWatermark(db.Redis, "update-sweep", 0)
	} else {
		zlog.Warn("REDIS_ADDR not set: run a single scheduler instance")
	}
	sweeper := scheduler.New(pinRepo, engine, logger.Component(zlog, "scheduler"), schedOpts)

	dispatcher.Start(ctx)
	sweeper.Start(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	router.SetupMiddleware(e, logger.Component(zlog, "http"))

	// Setup routes and dependencies
	router.SetupRoutes(e, router.Dependencies{
		Updates:     updateRepo,
		Preferences: preferences,
		Announcer:   dispatcher,
		Events:      dispatcher,
		Queue:       dispatcher,
		Scheduler:   sweeper,
		Logger:      logger.Component(zlog, "http"),
	})

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http shutdown", zap.Error(err))
	}
	sweeper.Stop()
	dispatcher.Stop()
	if n := dispatcher.Drain(shutdownCtx); n > 0 {
		zlog.Info("drained pending fan-out jobs", zap.Int("jobs", n))
	}
	if left := dispatcher.Len(); left > 0 {
		zlog.Warn("fan-out jobs lost at shutdown", zap.Int("jobs", left))
	}
	zlog.Info("server stopped gracefully")
}

func ensureIndexes(ctx context.Context, updateRepo *repositories.MongoUpdateRepository, pinRepo *repositories.MongoPinRepository) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := updateRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	return pinRepo.EnsureIndexes(ctx)
}

func preferenceStore(cfg *config.Config, db *config.DB) (handlers.PreferenceStore, error) {
	if cfg.UserStore != config.UserStorePostgres {
		return repositories.NewMongoUserRepository(db.Mongo.Database(cfg.MongoDatabase)), nil
	}
	repo := repositories.NewPostgresPreferenceRepository(db.Postgres)
	if err := repo.AutoMigrate(); err != nil {
		return nil, err
	}
	return repo, nil
}
