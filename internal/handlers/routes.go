package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/voice-interview/internal/services"
)

// multipart framing on top of the largest accepted file
const bodyOverhead = 1 << 20

// BodyLimit is the request size the server must accept: room for either a CV
// of maxFileSize bytes or an audio upload at the audio cap.
func BodyLimit(maxFileSize int64) int {
	return int(max(maxFileSize, int64(services.MaxAudioBytes))) + bodyOverhead
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(app *fiber.App, users *UserHandler, documents *DocumentHandler, interview *InterviewHandler) {
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/users/:userId", users.HandleInitialize)

	api.Post("/users/:userId/documents", documents.HandleUpload)
	api.Get("/users/:userId/documents", documents.HandleList)
	api.Put("/users/:userId/documents/latest", documents.HandleUpdateLatest)

	api.Post("/users/:userId/interview/turns", interview.HandleTurn)
	api.Post("/users/:userId/interview/playback", interview.HandlePlaybackFinished)
	api.Get("/users/:userId/interview", interview.HandleGetSession)
}

// ErrorHandler renders unhandled errors as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)

	return c.Status(code).JSON(fiber.Map{
		"error": publicMessage(err, code),
		"code":  code,
	})
}
