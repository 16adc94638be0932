package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Tweets *TweetHandlers
	Users  *UserHandlers
	Pages  *PageHandlers
}

// AppConfig holds the transport settings of NewApp.
type AppConfig struct {
	CORSOrigins []string
	// Nil disables rate limiting.
	RateLimiter *RateLimiter
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(cfg AppConfig, h Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "socialfeed",
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(RequestIDConfig()))
	app.Use(RequestIDToContextMiddleware())
	app.Use(RequestLoggerMiddleware())
	app.Use(cors.New(CORSConfig(cfg.CORSOrigins)))

	SetupRoutes(app, h, cfg.RateLimiter)
	return app
}

// SetupRoutes configures the application routes. Mutating API routes go
// through the rate limiter when one is given.
func SetupRoutes(app *fiber.App, h Handlers, limiter *RateLimiter) {
	app.Get("/", h.Pages.Feed)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	})

	limit := func(c *fiber.Ctx) error { return c.Next() }
	if limiter != nil {
		limit = limiter.Middleware()
	}

	api := app.Group("/api")

	tweets := api.Group("/tweet")
	tweets.Get("/", h.Tweets.GetAll)
	tweets.Post("/", limit, h.Tweets.Create)
	tweets.Get("/user/:userId", h.Tweets.GetByAuthor)
	tweets.Get("/:id", h.Tweets.GetByID)
	tweets.Put("/:id", limit, h.Tweets.Update)
	tweets.Delete("/:id", limit, h.Tweets.Delete)
	tweets.Post("/:id/like", limit, h.Tweets.Like)
	tweets.Post("/:id/unlike", limit, h.Tweets.Unlike)
	tweets.Get("/:id/replies", h.Tweets.GetReplies)

	users := api.Group("/user")
	users.Post("/", limit, h.Users.Create)
	users.Get("/", h.Users.GetAll)
	users.Get("/username/:username", h.Users.GetByUsername)
	users.Get("/:id", h.Users.GetByID)
	users.Delete("/:id", limit, h.Users.Delete)
}
