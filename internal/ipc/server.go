package ipc

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// DefaultListenAddr keeps the bridge on the loopback interface.
const DefaultListenAddr = "127.0.0.1:7345"

// NewServer wraps svc in a fiber app exposing POST /ipc/:channel and
// GET /healthz. Channel failures are still answered with HTTP 200 and a
// failed envelope; transport failures use the error handler.
func NewServer(svc *Service, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "processflow",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           30 * time.Second,
		BodyLimit:             64 << 20,
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          errorHandler(log),
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/ipc", func(c *fiber.Ctx) error {
		return c.JSON(svc.Channels())
	})
	app.Post("/ipc/:channel", func(c *fiber.Ctx) error {
		env := svc.Call(c.Params("channel"), c.Body())
		return c.JSON(env)
	})
	return app
}

func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		log.Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Err(err).
			Msg("request failed")

		return c.Status(code).JSON(Envelope{Error: err.Error()})
	}
}
