package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/billing"
	"github.com/tlcshift/ShiftMarket/internal/pkg/cache"
	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
	"github.com/tlcshift/ShiftMarket/internal/pkg/database"
	"github.com/tlcshift/ShiftMarket/internal/pkg/env"
	"github.com/tlcshift/ShiftMarket/internal/pkg/mail"
	"github.com/tlcshift/ShiftMarket/internal/pkg/oauth"
	"github.com/tlcshift/ShiftMarket/internal/pkg/opendata"
	"github.com/tlcshift/ShiftMarket/internal/pkg/router"
	"github.com/tlcshift/ShiftMarket/internal/pkg/storage"
)

func main() {
	app, settings := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", settings.AppHost, settings.AppPort))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *config.Settings) {
	env.SetupEnvFile()
	settings := config.Load()

	database.SetupDatabase()
	cache.SetupCache()

	factory := repository.NewFactory(database.GetDB())
	repository.SetGlobalFactory(factory)
	repos := factory.GetRepositories()

	stripeClient := billing.NewStripeClient(settings.StripeSecretKey)
	billingSvc := billing.NewService(stripeClient, settings, repos)

	store, err := storage.NewCloudinaryStore(settings)
	if err != nil {
		log.Fatalf("storage setup failed: %v", err)
	}

	verifier, err := oauth.NewGoogleVerifier(context.Background(), settings.GoogleClientID)
	if err != nil {
		log.Fatalf("google oauth setup failed: %v", err)
	}

	mailer := mail.NewMailer(settings)
	notifier := mail.NewNotifier(mailer, repos.EmailLog, settings.FrontendURL)
	openData := opendata.NewClient(settings.OpenDataAppToken)

	app := fiber.New(fiber.Config{
		AppName:   "ShiftMarket",
		BodyLimit: 32 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(settings.CORSOriginsList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Stripe-Signature",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	router.InstallRouter(app, router.Deps{
		Settings: settings,
		Repos:    repos,
		Billing:  billingSvc,
		Store:    store,
		Notifier: notifier,
		Verifier: verifier,
		OpenData: openData,
	})

	return app, settings
}
