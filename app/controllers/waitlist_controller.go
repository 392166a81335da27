package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"

	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/mail"
)

// WaitlistController handles early-access signups.
type WaitlistController struct {
	waitlist repository.WaitlistRepository
	notifier *mail.Notifier
	validate *validator.Validate
}

func NewWaitlistController(repos *repository.Repositories, notifier *mail.Notifier) *WaitlistController {
	return &WaitlistController{
		waitlist: repos.Waitlist,
		notifier: notifier,
		validate: validator.New(),
	}
}

type joinWaitlistRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleJoin adds an email to the waitlist. Re-joining refreshes the
// existing entry instead of failing.
func (ctl *WaitlistController) HandleJoin(c *fiber.Ctx) error {
	var req joinWaitlistRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := ctl.validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "A valid email is required")
	}

	entry, err := ctl.waitlist.Upsert(req.Email)
	if err != nil {
		log.Printf("waitlist: join failed for %s: %v", req.Email, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to join waitlist")
	}

	go ctl.notifier.SendWaitlistConfirmation(entry.Email)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"email":      entry.Email,
		"created_at": entry.CreatedAt,
		"updated_at": entry.UpdatedAt,
	})
}

// HandleEntries lists waitlist entries with offset/limit.
func (ctl *WaitlistController) HandleEntries(c *fiber.Ctx) error {
	offset, limit := offsetLimit(c)
	entries, err := ctl.waitlist.List(offset, limit)
	if err != nil {
		log.Printf("waitlist: list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load waitlist")
	}
	return c.JSON(entries)
}

// HandleCount returns the total number of waitlist entries.
func (ctl *WaitlistController) HandleCount(c *fiber.Ctx) error {
	count, err := ctl.waitlist.Count()
	if err != nil {
		log.Printf("waitlist: count failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count waitlist")
	}
	return c.JSON(fiber.Map{"count": count})
}
