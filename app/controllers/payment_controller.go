package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/billing"
	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
	"github.com/tlcshift/ShiftMarket/internal/pkg/middleware"
)

// PaymentController exposes the billing surface. The webhook endpoint is the
// only unauthenticated route; it is protected by signature verification on
// the raw body instead.
type PaymentController struct {
	settings *config.Settings
	billing  *billing.Service
	payments repository.PaymentRepository
}

func NewPaymentController(settings *config.Settings, billingSvc *billing.Service, repos *repository.Repositories) *PaymentController {
	return &PaymentController{
		settings: settings,
		billing:  billingSvc,
		payments: repos.Payment,
	}
}

// HandleCheckRequirement reports whether the next listing needs a
// subscription.
func (ctl *PaymentController) HandleCheckRequirement(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	check, err := ctl.billing.CheckPaymentRequirement(userID)
	if err != nil {
		log.Printf("payments: requirement check failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check payment requirement")
	}
	return c.JSON(check)
}

type createCheckoutSessionRequest struct {
	ListingID   uint   `json:"listing_id"`
	PaymentType string `json:"payment_type"`
}

// HandleCreateCheckoutSession starts a subscription checkout for a listing.
func (ctl *PaymentController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	var req createCheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil || req.ListingID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "listing_id is required")
	}

	result, err := ctl.billing.CreateCheckoutSession(c.Context(), userID, req.ListingID, req.PaymentType)
	if err != nil {
		if errors.Is(err, billing.ErrListingNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		if errors.Is(err, billing.ErrInvalidPaymentType) {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Unknown payment type")
		}
		log.Printf("payments: checkout session failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create checkout session")
	}
	return c.JSON(result)
}

// HandleWebhook verifies the provider signature over the raw body, then
// feeds the event to the reconciler. Invalid signatures are rejected before
// any processing.
func (ctl *PaymentController) HandleWebhook(c *fiber.Ctx) error {
	sigHeader := c.Get("Stripe-Signature")
	if sigHeader == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing Stripe-Signature header")
	}

	event, err := ctl.billing.VerifyWebhook(c.Body(), sigHeader)
	if err != nil {
		log.Printf("payments: webhook signature verification failed: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid webhook signature")
	}

	if err := ctl.billing.HandleWebhookEvent(c.Context(), event); err != nil {
		log.Printf("payments: webhook %s (%s) processing failed: %v", event.ID, event.Type, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Webhook processing failed")
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// HandleSubscriptionInfo returns the user's active subscriptions.
func (ctl *PaymentController) HandleSubscriptionInfo(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	info, err := ctl.billing.SubscriptionInfo(userID)
	if err != nil {
		log.Printf("payments: subscription info failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to fetch subscription information")
	}
	return c.JSON(info)
}

// HandlePaymentHistory returns the user's ledger rows, newest first.
func (ctl *PaymentController) HandlePaymentHistory(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	offset, limit := pagination(c)
	payments, total, err := ctl.payments.ListByUser(userID, offset, limit)
	if err != nil {
		log.Printf("payments: history failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to fetch payment history")
	}
	return c.JSON(fiber.Map{
		"payments": payments,
		"total":    total,
	})
}

// HandleConfig returns the publishable key and price info. Safe to expose.
func (ctl *PaymentController) HandleConfig(c *fiber.Ctx) error {
	priceInfo := ctl.billing.GetListingPriceInfo()
	return c.JSON(fiber.Map{
		"publishable_key":    ctl.settings.StripePublishableKey,
		"price_per_listing":  priceInfo.Amount,
		"currency":           priceInfo.Currency,
		"recurring_interval": priceInfo.Interval,
	})
}

type cancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

// HandleCancelSubscription cancels a provider subscription the user owns.
func (ctl *PaymentController) HandleCancelSubscription(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}

	var req cancelSubscriptionRequest
	if err := c.BodyParser(&req); err != nil || req.SubscriptionID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "subscription_id is required")
	}

	if err := ctl.billing.CancelSubscription(userID, req.SubscriptionID); err != nil {
		if errors.Is(err, billing.ErrNotSubscriptionOwner) {
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Subscription does not belong to this account")
		}
		log.Printf("payments: cancel subscription failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to cancel subscription")
	}
	return c.JSON(fiber.Map{"message": "Subscription cancelled"})
}
