package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type healthHandler struct {
	startTime time.Time
}

func NewHealthHandler() Handler {
	return &healthHandler{startTime: time.Now()}
}

func (s *healthHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}
