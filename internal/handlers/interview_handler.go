package handlers

import (
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
	"alfredoptarigan/voice-interview/internal/session"
)

type InterviewHandler struct {
	sessions *session.Registry
	logger   *zap.Logger
}

func NewInterviewHandler(sessions *session.Registry, log *zap.Logger) *InterviewHandler {
	return &InterviewHandler{
		sessions: sessions,
		logger:   logger.OrNop(log),
	}
}

// HandleTurn handles POST /users/:userId/interview/turns
func (h *InterviewHandler) HandleTurn(c *fiber.Ctx) error {
	userID := c.Params("userId")

	audioFile, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "audio is required",
		})
	}

	data, err := readFormFile(audioFile)
	if err != nil {
		return respondError(c, h.logger, "Submit", err)
	}

	result, err := h.sessions.Get(userID).Submit(c.UserContext(), models.AudioBlob{
		Data:     data,
		MIMEType: audioFile.Header.Get(fiber.HeaderContentType),
	})
	if err != nil {
		return respondError(c, h.logger, "Submit", err)
	}

	return c.JSON(models.TurnResponse{
		Transcript:    result.Transcript,
		Response:      result.Response,
		Audio:         base64.StdEncoding.EncodeToString(result.Audio),
		AudioMIMEType: result.AudioMIMEType,
	})
}

// HandlePlaybackFinished handles POST /users/:userId/interview/playback
func (h *InterviewHandler) HandlePlaybackFinished(c *fiber.Ctx) error {
	s := h.sessions.Get(c.Params("userId"))
	s.PlaybackFinished()

	return c.JSON(fiber.Map{
		"state": s.State(),
	})
}

// HandleGetSession handles GET /users/:userId/interview
func (h *InterviewHandler) HandleGetSession(c *fiber.Ctx) error {
	userID := c.Params("userId")

	response := models.SessionResponse{
		UserID: userID,
		State:  string(session.StateIdle),
		Turns:  []models.ConversationTurn{},
	}

	if s, ok := h.sessions.Lookup(userID); ok {
		response.State = string(s.State())
		response.Notice = s.Notice()
		response.Turns = s.History()
		if response.Turns == nil {
			response.Turns = []models.ConversationTurn{}
		}
	}

	return c.JSON(response)
}
