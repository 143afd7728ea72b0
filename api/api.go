package api

import (
	"log/slog"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GKaszewski/k-core/pkg/logger"
)

// Server serves the k-core HTTP surface.
type Server struct {
	config   Config
	deps     Deps
	logger   *slog.Logger
	app      *fiber.App
	sessions *fibersession.Store

	// collection guards the vector collection size, set on first use.
	collectionMu   sync.Mutex
	collectionSize uint64
}

// NewServer creates the server and registers its routes.
func NewServer(config Config, deps Deps, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if config.EventsTopic == "" {
		config.EventsTopic = DefaultEventsTopic
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})
	ApplyStandardMiddleware(app, config.Server, log)

	s := &Server{
		config: config,
		deps:   deps,
		logger: log,
		app:    app,
	}
	if deps.Sessions != nil {
		s.sessions = AttachSessions(deps.Sessions, config.Session)
	}

	app.Get("/ping", s.handlePing)
	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")
	v1.Get("/session", s.handleSession)
	v1.Post("/topics/:topic", s.handlePublish)
	v1.Post("/embeddings", s.handleEmbed)
	v1.Post("/documents", s.handleIndexDocument)
	v1.Post("/search", s.handleSearch)

	return s
}

// App exposes the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting api server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
