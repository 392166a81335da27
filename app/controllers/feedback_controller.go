package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tlcshift/ShiftMarket/app/models"
	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/middleware"
)

// FeedbackController collects product feedback from both signed-in users and
// anonymous visitors.
type FeedbackController struct {
	feedback repository.FeedbackRepository
}

func NewFeedbackController(repos *repository.Repositories) *FeedbackController {
	return &FeedbackController{feedback: repos.Feedback}
}

type submitFeedbackRequest struct {
	Text      string `json:"text"`
	VisitorID string `json:"visitor_id"`
}

// HandleSubmit stores feedback. The user id is attached when the request
// carries a valid token; anonymous submissions keep only the visitor id.
func (ctl *FeedbackController) HandleSubmit(c *fiber.Ctx) error {
	var req submitFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "text is required")
	}

	entry := &models.Feedback{
		Text:      req.Text,
		VisitorID: req.VisitorID,
	}
	if userID, ok := middleware.UserID(c); ok {
		entry.UserID = &userID
	}

	if err := ctl.feedback.Create(entry); err != nil {
		log.Printf("feedback: submit failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to submit feedback")
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// HandleEntries lists feedback with offset/limit.
func (ctl *FeedbackController) HandleEntries(c *fiber.Ctx) error {
	offset, limit := offsetLimit(c)
	entries, err := ctl.feedback.List(offset, limit)
	if err != nil {
		log.Printf("feedback: list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load feedback")
	}
	return c.JSON(entries)
}

// HandleCount returns the total number of feedback entries.
func (ctl *FeedbackController) HandleCount(c *fiber.Ctx) error {
	count, err := ctl.feedback.Count()
	if err != nil {
		log.Printf("feedback: count failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count feedback")
	}
	return c.JSON(fiber.Map{"count": count})
}
