package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/pkg/conversation"
	"github.com/synaptideco/synaptide/pkg/storage"
)

// Server is the HTTP API server for users, messages, and profiles.
type Server struct {
	config Config
	store  storage.Store
	chat   *conversation.Service
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The store is injected to allow sharing with other components.
func NewServer(config Config, store storage.Store, chat *conversation.Service, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		store:  store,
		chat:   chat,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	users := app.Group("/api/users")
	users.Post("/", s.handleCreateUser)
	users.Get("/", s.handleGetUserByName)
	users.Post("/:userID/messages", s.handleSendMessage)
	users.Get("/:userID/messages", s.handleListMessages)
	users.Delete("/:userID/messages", s.handleClearMessages)
	users.Get("/:userID/profile", s.handleGetProfile)

	return s
}

// App exposes the underlying fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
