package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dukex/qmsflow/pkg/cmd"
	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/urfave/cli/v3"
)

type API struct {
	logger    *slog.Logger
	records   persistence.RecordStore
	services  *cmd.Services
	publisher eventbus.EventPublisher
	validate  *validator.Validate
}

// NewAPI creates the HTTP API. publisher may be nil, which disables
// asynchronous event processing.
func NewAPI(
	logger *slog.Logger,
	records persistence.RecordStore,
	services *cmd.Services,
	publisher eventbus.EventPublisher,
) *API {
	return &API{
		logger:    logger,
		records:   records,
		services:  services,
		publisher: publisher,
		validate:  models.Validator(),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.services.Engine,
		a.services.Orchestrator,
		a.services.Integration,
		a.records,
		a.publisher,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return a.records.HealthCheck(c.Context()) == nil
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("qmsflow API")
	})

	handlers.Register(app)

	return app
}

// Start serves until ctx is cancelled.
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

func NewAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "api",
		Aliases: []string{"a"},
		Usage:   "Start the HTTP API",
		Flags: withFlags(
			[]cli.Flag{
				&cli.IntFlag{
					Name:    "port",
					Aliases: []string{"p"},
					Usage:   "Port to run the API server on",
					Value:   defaultPort,
					Sources: cli.EnvVars("PORT"),
				},
				&cli.BoolFlag{
					Name:    "embedded-worker",
					Usage:   "Also run the event worker and overdue sweep in this process",
					Sources: cli.EnvVars("EMBEDDED_WORKER"),
				},
				scheduleFlag(),
			},
			storeFlags(),
			busFlags(),
			commonFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, command, "qmsflow-api")
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			rt.logger.InfoContext(ctx, "Initializing qmsflow API")

			if command.Bool("embedded-worker") {
				worker, err := newWorker(rt, "embedded", command.String("event-bus"), command.String("overdue-check-schedule"))
				if err != nil {
					return err
				}

				err = worker.Start(ctx)
				if err != nil {
					return err
				}

				defer func() {
					if err := worker.Stop(context.WithoutCancel(ctx)); err != nil {
						rt.logger.ErrorContext(ctx, "Failed to stop worker", "error", err)
					}
				}()
			}

			api := NewAPI(rt.logger, rt.records, rt.services, rt.bus)

			err = api.Start(ctx, command.Int("port"))
			if err != nil {
				rt.logger.ErrorContext(ctx, "Failed to start API", "error", err)

				return err
			}

			return nil
		},
	}
}
