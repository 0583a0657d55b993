package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/datasprint/datasprint-api/internal/config"
	"github.com/datasprint/datasprint-api/internal/handler"
	"github.com/datasprint/datasprint-api/internal/middleware"
	"github.com/datasprint/datasprint-api/internal/models"
	"github.com/datasprint/datasprint-api/internal/observability"
)

// Dependencies groups the handlers the router wires up.
type Dependencies struct {
	UploadHandler          *handler.UploadHandler
	ChallengeHandler       *handler.ChallengeHandler
	SubmissionHandler      *handler.SubmissionHandler
	AdminSubmissionHandler *handler.AdminSubmissionHandler
	UserHandler            *handler.UserHandler
	LeaderboardHandler     *handler.LeaderboardHandler
	EventHandler           *handler.EventHandler
	JWTMiddleware          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// The relay keeps its historical top-level path, outside the API prefix.
	if deps.UploadHandler != nil {
		app.Use("/upload", middleware.RateLimit("upload", 30, time.Minute))
		deps.UploadHandler.Register(app)
	}

	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterAuth(api.Group("/auth", middleware.RateLimit("auth", 10, time.Minute)))
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
		deps.UserHandler.RegisterAdmin(api.Group("/admin/users", jwtMiddleware, adminOnly))
	}

	if deps.ChallengeHandler != nil {
		deps.ChallengeHandler.Register(api.Group("/challenges"), jwtMiddleware, adminOnly)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
	}

	if deps.AdminSubmissionHandler != nil {
		deps.AdminSubmissionHandler.Register(api.Group("/admin/submissions", jwtMiddleware, adminOnly))
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(api.Group("/leaderboard"))
	}

	if deps.EventHandler != nil {
		deps.EventHandler.Register(api.Group("/events", jwtMiddleware))
	}
}
