package web

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"socialfeed/internal/domain"
)

// ParseID reads a positive integer route parameter.
// Returns a domain validation error if it is missing or malformed.
func ParseID(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("web.params", "%s must be a positive integer, got '%s'", name, raw)
	}
	return id, nil
}
