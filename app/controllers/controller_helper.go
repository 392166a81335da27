package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPerPage = 20
	maxPerPage     = 50
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// pagination reads page/per_page query params, clamped to sane bounds.
func pagination(c *fiber.Ctx) (offset, limit int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return (page - 1) * perPage, perPage
}

// offsetLimit reads offset/limit query params for admin-style list endpoints.
func offsetLimit(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit = c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return offset, limit
}

// parseDateTime accepts the timestamp shapes frontends actually send.
func parseDateTime(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseMileageRange parses a lenient "min-max" string. Either side may be
// empty; a side that fails to parse is dropped rather than erroring.
func parseMileageRange(value string) (min, max *float64) {
	if value == "" {
		return nil, nil
	}
	parts := strings.SplitN(value, "-", 2)
	if v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
		min = &v
	}
	if len(parts) == 2 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
			max = &v
		}
	}
	return min, max
}
