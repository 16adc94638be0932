package web

import (
	"context"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"socialfeed/internal/domain"
	"socialfeed/internal/usecases"
	"socialfeed/pkg/log"
	"socialfeed/templates/pages"
)

// PageHandlers serves the HTML pages.
type PageHandlers struct {
	tweets  *usecases.TweetService
	timeout time.Duration
}

// NewPageHandlers creates a new PageHandlers instance.
func NewPageHandlers(tweets *usecases.TweetService, timeout time.Duration) *PageHandlers {
	return &PageHandlers{tweets: tweets, timeout: timeout}
}

// render is a helper to render templ components.
func render(c *fiber.Ctx, component templ.Component) error {
	c.Set("Content-Type", "text/html")
	return adaptor.HTTPHandler(templ.Handler(component))(c)
}

// Feed renders the latest tweets. An empty feed is a normal page, not an error.
func (h *PageHandlers) Feed(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	tweets, err := h.tweets.GetAll(ctx)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		log.ErrorCtx(ctx, "render feed failed", "error", err)
		c.Status(fiber.StatusInternalServerError)
		return render(c, pages.FeedPage(nil, "The feed is unavailable right now. Please try again in a moment."))
	}
	return render(c, pages.FeedPage(tweets, ""))
}
