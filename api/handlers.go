package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/pkg/chat"
	"github.com/synaptideco/synaptide/pkg/storage"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateUserRequest is the body for creating or fetching a user by name.
type CreateUserRequest struct {
	Name string `json:"name"`
}

// SendMessageRequest is the body for submitting a chat message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessagesResponse contains a user's messages in chronological order.
type MessagesResponse struct {
	Messages []*chat.Message `json:"messages"`
	Count    int             `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateUser creates a user, or returns the existing one with the
// same name.
func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	user, err := s.store.CreateOrGetUser(c.Context(), req.Name)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(user)
}

// handleGetUserByName looks up a user by the name query parameter.
func (s *Server) handleGetUserByName(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name parameter required"})
	}

	user, err := s.store.GetUserByName(c.Context(), name)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(user)
}

// handleSendMessage runs one exchange: the user turn is persisted, a reply
// is generated from the full history and persisted, and the reply message
// comes back with 201.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	userID := c.Params("userID")

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	exchange, err := s.chat.Exchange(c.Context(), userID, req.Content)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(exchange.Reply)
}

// handleListMessages returns the user's full history, oldest first.
func (s *Server) handleListMessages(c *fiber.Ctx) error {
	userID := c.Params("userID")

	messages, err := s.store.ListMessages(c.Context(), userID)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(MessagesResponse{
		Messages: messages,
		Count:    len(messages),
	})
}

// handleClearMessages deletes the user's history. The profile survives.
func (s *Server) handleClearMessages(c *fiber.Ctx) error {
	userID := c.Params("userID")

	if err := s.store.ClearMessages(c.Context(), userID); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(map[string]any{"message": "chat history cleared"})
}

// handleGetProfile returns the user's preference profile. Users who have
// never been analyzed get a default profile rather than an error.
func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	userID := c.Params("userID")

	profile, err := s.store.GetProfile(c.Context(), userID)
	if storage.IsNotFound(err) {
		return c.JSON(&chat.Profile{
			UserID:             userID,
			Interests:          []string{},
			CommunicationStyle: chat.DefaultCommunicationStyle,
			Traits:             []string{},
			Preferences:        map[string]string{},
		})
	}
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(profile)
}

// respondError maps storage and generation failures to HTTP statuses.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var (
		verr storage.ValidationError
		nerr storage.NotFoundError
		uerr storage.UnavailableError
		perr storage.PartialFailureError
	)

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: verr.Error()})
	case errors.As(err, &nerr):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: nerr.Error()})
	case errors.As(err, &uerr):
		s.logger.Error("storage unavailable", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "storage unavailable"})
	case errors.As(err, &perr):
		s.logger.Error("partial failure", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: perr.Error()})
	}

	s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal server error"})
}
