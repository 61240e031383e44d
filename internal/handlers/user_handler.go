package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/services"
)

type UserHandler struct {
	documentService services.DocumentService
	logger          *zap.Logger
}

func NewUserHandler(documentService services.DocumentService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		documentService: documentService,
		logger:          logger.OrNop(log),
	}
}

// HandleInitialize handles POST /users/:userId
func (h *UserHandler) HandleInitialize(c *fiber.Ctx) error {
	userID := c.Params("userId")

	if err := h.documentService.InitializeUser(c.UserContext(), userID); err != nil {
		return respondError(c, h.logger, "InitializeUser", err)
	}

	return c.JSON(fiber.Map{
		"message": "User initialized",
		"user_id": userID,
	})
}
