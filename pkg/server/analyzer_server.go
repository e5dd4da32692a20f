package server

import (
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/PromptSentry/PromptSentry/pkg/config"
	handlers "github.com/PromptSentry/PromptSentry/pkg/handlers/http"
)

type (
	AnalyzerServerDI struct {
		HandlerTransport handlers.HandlerTransport
		Config           *config.Config
		Logger           *logrus.Logger
	}
	AnalyzerServer struct {
		*BaseServer
		handlerTransport handlers.HandlerTransport
		routesOnce       sync.Once
	}
)

func NewAnalyzerServer(di AnalyzerServerDI) *AnalyzerServer {
	return &AnalyzerServer{
		BaseServer:       NewBaseServer(di.Config, di.Logger),
		handlerTransport: di.HandlerTransport,
	}
}

func (s *AnalyzerServer) Run() error {
	s.setupRoutes()
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("starting analyzer server")
	return s.Router.Listen(addr)
}

func (s *AnalyzerServer) setupRoutes() {
	s.routesOnce.Do(func() {
		s.Router.Get("/health", s.handlerTransport.HealthHandler.Handle)

		v1 := s.Router.Group("/api/v1")
		{
			v1.Post("/check-content", s.handlerTransport.CheckContentHandler.Handle)
		}
	})
}

// App exposes the fiber app for in-process request testing.
func (s *AnalyzerServer) App() *fiber.App {
	s.setupRoutes()
	return s.Router
}

func (s *AnalyzerServer) Shutdown() error {
	return s.Router.Shutdown()
}
