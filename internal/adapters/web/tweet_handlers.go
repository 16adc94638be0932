package web

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"socialfeed/internal/domain"
	"socialfeed/internal/usecases"
)

// TweetHandlers serves /api/tweet.
type TweetHandlers struct {
	tweets  *usecases.TweetService
	timeout time.Duration
}

// NewTweetHandlers creates a new TweetHandlers instance.
func NewTweetHandlers(tweets *usecases.TweetService, timeout time.Duration) *TweetHandlers {
	return &TweetHandlers{tweets: tweets, timeout: timeout}
}

// CreateTweetRequest is the body of POST /api/tweet.
type CreateTweetRequest struct {
	Body     string `json:"body"`
	UserID   int64  `json:"userId"`
	ParentID *int64 `json:"parentId"`
}

// UpdateTweetRequest is the body of PUT /api/tweet/:id.
type UpdateTweetRequest struct {
	Body string `json:"body"`
}

// SuccessResponse answers operations that only report an outcome.
type SuccessResponse struct {
	Success bool `json:"success"`
}

func (h *TweetHandlers) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *TweetHandlers) GetAll(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	tweets, err := h.tweets.GetAll(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tweets)
}

func (h *TweetHandlers) Create(c *fiber.Ctx) error {
	var req CreateTweetRequest
	if err := c.BodyParser(&req); err != nil {
		return writeKind(c, domain.KindValidation, "request body must be a JSON tweet")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	tweet, err := h.tweets.Create(ctx, req.UserID, req.Body, req.ParentID)
	if err != nil {
		return writeError(c, err)
	}

	c.Location("/api/tweet/" + strconv.FormatInt(tweet.ID, 10))
	return c.Status(fiber.StatusCreated).JSON(tweet)
}

func (h *TweetHandlers) GetByID(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	tweet, err := h.tweets.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tweet)
}

func (h *TweetHandlers) GetByAuthor(c *fiber.Ctx) error {
	// The service validates the id, so malformed input is passed through as 0.
	userID, _ := strconv.ParseInt(c.Params("userId"), 10, 64)

	ctx, cancel := h.ctx(c)
	defer cancel()

	tweets, err := h.tweets.GetByAuthor(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tweets)
}

// Update accepts the new body as JSON or, like older clients, as the
// newBody query parameter.
func (h *TweetHandlers) Update(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	body := c.Query("newBody")
	if body == "" && len(c.Body()) > 0 {
		var req UpdateTweetRequest
		if err := c.BodyParser(&req); err != nil {
			return writeKind(c, domain.KindValidation, "request body must be a JSON object with a body field")
		}
		body = req.Body
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	tweet, err := h.tweets.UpdateBody(ctx, id, body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tweet)
}

func (h *TweetHandlers) Like(c *fiber.Ctx) error {
	return h.outcome(c, h.tweets.Like)
}

func (h *TweetHandlers) Unlike(c *fiber.Ctx) error {
	return h.outcome(c, h.tweets.Unlike)
}

func (h *TweetHandlers) Delete(c *fiber.Ctx) error {
	return h.outcome(c, h.tweets.Delete)
}

func (h *TweetHandlers) outcome(c *fiber.Ctx, op func(context.Context, int64) (bool, error)) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	ok, err := op(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(SuccessResponse{Success: ok})
}

func (h *TweetHandlers) GetReplies(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	replies, err := h.tweets.GetReplies(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(replies)
}
