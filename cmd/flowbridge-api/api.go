package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/services"
	"github.com/dukex/flowbridge/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// multipart framing on top of the blueprint itself
const uploadOverhead = 1 << 20

type API struct {
	logger            *slog.Logger
	conversionService *services.Conversion
	table             models.MappingTable
	validate          *validator.Validate
	maxUploadSize     int64
}

func NewAPI(
	logger *slog.Logger,
	conversionService *services.Conversion,
	table models.MappingTable,
	maxUploadSize int64,
) *API {
	if maxUploadSize <= 0 {
		maxUploadSize = web.DefaultMaxUploadSize
	}

	return &API{
		logger:            logger,
		conversionService: conversionService,
		table:             table,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		maxUploadSize:     maxUploadSize,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.conversionService, a.table, a.validate, a.logger, a.maxUploadSize)

	app := fiber.New(fiber.Config{
		AppName:   "flowbridge",
		BodyLimit: int(a.maxUploadSize) + uploadOverhead,
	})
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, healthy := a.conversionService.HealthCheck(c.Context())

			return healthy
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowbridge API")
	})

	handlers.Register(app)

	return app
}

// Start serves the API until ctx is canceled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
