// Package main provides the Cadence API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/fieldsuite/cadence/pkg/cmd"
	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/mailer"
	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/runcontext"
	"github.com/fieldsuite/cadence/pkg/runner"
	"github.com/fieldsuite/cadence/pkg/trigger"
	"github.com/fieldsuite/cadence/pkg/web"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	eventBus eventbus.EventBus
	company  *models.CompanySettings
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	company *models.CompanySettings,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		eventBus: eventBus,
		company:  company,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	resolver := runcontext.NewResolver(a.store, a.company, a.logger)
	intake := trigger.NewIntake(a.store, resolver, a.eventBus, a.logger)

	// The API validates step configs against the same registry the workers
	// execute with. Its mailer is never used to send.
	reg := cmd.NewRegistry(a.logger, a.store, mailer.NewLogMailer(a.logger))
	run := runner.NewRunner(a.store, resolver, reg, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(a.store, intake, run, a.eventBus, a.validate, reg, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadence API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
