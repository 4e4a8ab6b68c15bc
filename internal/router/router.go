package router

import (
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/handlers"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/middleware"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the routes need
type Dependencies struct {
	Updates     repositories.UpdateRepository
	Preferences handlers.PreferenceStore
	Announcer   handlers.Announcer
	Events      handlers.EventSink
	Queue       handlers.QueueStats
	Scheduler   handlers.SweepStatus
	Logger      *zap.Logger
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e.Use(eMiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logging(logger))
	logger.Info("global middleware configured")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	health := handlers.NewHealthHandler(deps.Queue, deps.Scheduler)
	e.GET("/health", health.HealthCheck)

	// Internal surface; callers are trusted collaborators
	api := e.Group("/api/v1")

	updateHandler := handlers.NewUpdateHandler(deps.Updates, deps.Announcer, deps.Logger)
	updateHandler.RegisterUpdateRoutes(api)

	eventHandler := handlers.NewEventHandler(deps.Events)
	eventHandler.RegisterEventRoutes(api)

	userHandler := handlers.NewUserHandler(deps.Preferences, deps.Logger)
	userHandler.RegisterPreferenceRoutes(api)

	deps.Logger.Info("routes configured")
}
