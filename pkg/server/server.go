package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/PromptSentry/PromptSentry/pkg/config"
)

// Server is the common behavior for all servers.
type Server interface {
	Run() error
	Shutdown() error
}

type BaseServer struct {
	Config *config.Config
	Logger *logrus.Logger
	Router *fiber.App
}

func NewBaseServer(cfg *config.Config, logger *logrus.Logger) *BaseServer {
	r := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReduceMemoryUsage:     true,
		Network:               fiber.NetworkTCP,
		BodyLimit:             1 * 1024 * 1024,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	r.Server().NoDefaultServerHeader = true
	r.Use(recover.New())

	return &BaseServer{
		Config: cfg,
		Logger: logger,
		Router: r,
	}
}
