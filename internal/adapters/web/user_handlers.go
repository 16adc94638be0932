package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"socialfeed/internal/domain"
	"socialfeed/internal/usecases"
)

// UserHandlers serves /api/user.
type UserHandlers struct {
	users   *usecases.UserService
	timeout time.Duration
}

// NewUserHandlers creates a new UserHandlers instance.
func NewUserHandlers(users *usecases.UserService, timeout time.Duration) *UserHandlers {
	return &UserHandlers{users: users, timeout: timeout}
}

// CreateUserRequest is the body of POST /api/user.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UserHandlers) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *UserHandlers) Create(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return writeKind(c, domain.KindValidation, "request body must be a JSON user")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.users.Create(ctx, req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *UserHandlers) GetAll(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	users, err := h.users.GetAll(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(users)
}

func (h *UserHandlers) GetByID(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

// GetByUsername answers a lookup miss with 404 even though the service
// classifies it as a conflict.
func (h *UserHandlers) GetByUsername(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.users.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return writeKind(c, domain.KindNotFound, domain.Message(err))
		}
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandlers) Delete(c *fiber.Ctx) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.users.DeleteByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}
