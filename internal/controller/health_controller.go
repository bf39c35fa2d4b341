package controller

import (
	"context"
	"errors"
	"net/url"
	"time"

	"ai-redteam-be/internal/dto"
	"ai-redteam-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

const pingTimeout = 5 * time.Second

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	pinger llm.Pinger
}

// NewHealthController takes the model provider's liveness probe. pinger may
// be nil when the configured provider has no such endpoint.
func NewHealthController(pinger llm.Pinger) IHealthController {
	return &healthController{
		pinger: pinger,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

// Health reports without the standard envelope so probes can read the
// status field directly.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := dto.HealthResponse{Status: "healthy"}
	if c.pinger == nil {
		return ctx.JSON(res)
	}

	pingCtx, cancel := context.WithTimeout(ctx.Context(), pingTimeout)
	defer cancel()

	if err := c.pinger.Ping(pingCtx); err != nil {
		res.Ollama = "disconnected"

		// A transport failure means the daemon is gone; a bad status means it
		// answered, just not well.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			res.Status = "unhealthy"
			res.Error = err.Error()
		} else {
			res.Status = "degraded"
		}
		return ctx.JSON(res)
	}

	res.Ollama = "connected"
	return ctx.JSON(res)
}
