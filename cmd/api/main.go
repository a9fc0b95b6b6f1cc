package main

import (
	"context"
	"fmt"
	"log"

	"go-approvals/internal/api"
	"go-approvals/internal/config"
	"go-approvals/internal/controllers"
	"go-approvals/internal/database"
	"go-approvals/internal/directory"
	"go-approvals/internal/engine"
	"go-approvals/internal/logger"
	"go-approvals/internal/middleware"
	"go-approvals/internal/repository"
	"go-approvals/internal/service"
	"go-approvals/internal/ws"
	"go-approvals/pkg/utils"

	_ "go-approvals/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(api.Route)),           // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// StartScheduler wires the escalation sweep into the app lifecycle.
func StartScheduler(lc fx.Lifecycle, scheduler *engine.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}

// @title Approval Workflow Engine API
// @version 1.0
// @description Versioned approval workflows with SLA escalation over transaction requests.
// @BasePath /
func main() {
	app := fx.New(
		fx.Provide(
			// Core infrastructure
			config.LoadConfig,
			database.NewDatabase,
			database.NewDirectoryDB,
			logger.NewLogger,
			NewFiberServer,
			ws.NewHub,

			// Repositories
			repository.NewTemplateRepository,
			repository.NewRequestRepository,
			repository.NewNotificationRepository,
			repository.NewAuditRepository,

			// Services
			service.NewAuditService,
			service.NewNotificationService,
			service.NewTemplateService,
			service.NewExportService,
			directory.NewSQLResolver,

			// Interface adapters so the engine only sees its own contracts
			func(s service.NotificationService) engine.Notifier { return s },
			func(s service.AuditService) engine.AuditSink { return s },

			func(cfg *config.Config, templates repository.TemplateRepository, requests repository.RequestRepository,
				resolver engine.ApproverResolver, notifier engine.Notifier, audit engine.AuditSink, log *zap.Logger) engine.Engine {
				return engine.NewEngine(templates, requests, resolver, notifier, audit, log, cfg.DecisionRetries)
			},
			func(cfg *config.Config, requests repository.RequestRepository,
				notifier engine.Notifier, audit engine.AuditSink, log *zap.Logger) *engine.Scheduler {
				return engine.NewScheduler(requests, notifier, audit, log, cfg.SchedulerInterval)
			},

			// Controllers
			controllers.NewRequestController,
			controllers.NewTemplateController,
			controllers.NewNotificationController,
			controllers.NewWebSocketController,

			// API routes
			AsRoute(api.NewRequestApi),
			AsRoute(api.NewTemplateApi),
			AsRoute(api.NewNotificationApi),
			AsRoute(api.NewWebSocketApi),
			AsRoute(api.NewHealthApi),
			AsRoute(api.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartScheduler,
		),
	)

	app.Run()
}
