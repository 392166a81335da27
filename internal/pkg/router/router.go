package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/tlcshift/ShiftMarket/app/controllers"
	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/billing"
	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
	"github.com/tlcshift/ShiftMarket/internal/pkg/mail"
	"github.com/tlcshift/ShiftMarket/internal/pkg/middleware"
	"github.com/tlcshift/ShiftMarket/internal/pkg/oauth"
	"github.com/tlcshift/ShiftMarket/internal/pkg/opendata"
	"github.com/tlcshift/ShiftMarket/internal/pkg/storage"
)

// Deps carries everything the route tree needs, built once in main.
type Deps struct {
	Settings *config.Settings
	Repos    *repository.Repositories
	Billing  *billing.Service
	Store    storage.ImageStore
	Notifier *mail.Notifier
	Verifier oauth.Verifier
	OpenData *opendata.Client
}

// InstallRouter registers the whole JSON API on the app.
func InstallRouter(app *fiber.App, deps Deps) {
	auth := middleware.JWTAuth(deps.Settings)
	optionalAuth := middleware.OptionalJWTAuth(deps.Settings)

	users := controllers.NewUserController(deps.Settings, deps.Repos, deps.Notifier, deps.Verifier)
	listings := controllers.NewListingController(deps.Repos, deps.Billing, deps.Store)
	payments := controllers.NewPaymentController(deps.Settings, deps.Billing, deps.Repos)
	images := controllers.NewImageController(deps.Store)
	trips := controllers.NewTripController(deps.OpenData)
	waitlist := controllers.NewWaitlistController(deps.Repos, deps.Notifier)
	feedback := controllers.NewFeedbackController(deps.Repos)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// The webhook stays outside the rate-limited group: the provider retries
	// aggressively and must never be throttled into missed events.
	app.Post("/payments/webhook", payments.HandleWebhook)

	api := app.Group("/", limiter.New(limiter.Config{Max: 100}))

	userGroup := api.Group("/users")
	userGroup.Post("/signup", users.HandleSignup)
	userGroup.Post("/login", users.HandleLogin)
	userGroup.Post("/google-auth", users.HandleGoogleAuth)
	userGroup.Post("/request-password-reset", users.HandleRequestPasswordReset)
	userGroup.Post("/reset-password", users.HandleResetPassword)
	userGroup.Get("/me", auth, users.HandleGetMe)

	listingGroup := api.Group("/listings")
	listingGroup.Post("/", auth, listings.HandleCreateListing)
	listingGroup.Get("/", listings.HandleListListings)
	listingGroup.Get("/:id", listings.HandleGetListing)
	listingGroup.Put("/:id", auth, listings.HandleUpdateListing)
	listingGroup.Delete("/:id", auth, listings.HandleDeleteListing)

	imageGroup := api.Group("/images")
	imageGroup.Post("/upload", auth, images.HandleUpload)
	imageGroup.Post("/delete", auth, images.HandleDelete)

	paymentGroup := api.Group("/payments")
	paymentGroup.Get("/check-requirement", auth, payments.HandleCheckRequirement)
	paymentGroup.Post("/create-checkout-session", auth, payments.HandleCreateCheckoutSession)
	paymentGroup.Get("/subscription-info", auth, payments.HandleSubscriptionInfo)
	paymentGroup.Get("/history", auth, payments.HandlePaymentHistory)
	paymentGroup.Get("/config", payments.HandleConfig)
	paymentGroup.Post("/cancel-subscription", auth, payments.HandleCancelSubscription)

	tripGroup := api.Group("/trips")
	tripGroup.Get("/density", trips.HandleDensity)
	tripGroup.Get("/earnings", trips.HandleEarnings)

	waitlistGroup := api.Group("/waitlist")
	waitlistGroup.Post("/join", waitlist.HandleJoin)
	waitlistGroup.Get("/entries", waitlist.HandleEntries)
	waitlistGroup.Get("/count", waitlist.HandleCount)

	feedbackGroup := api.Group("/feedback")
	feedbackGroup.Post("/submit", optionalAuth, feedback.HandleSubmit)
	feedbackGroup.Get("/entries", feedback.HandleEntries)
	feedbackGroup.Get("/count", feedback.HandleCount)
}
