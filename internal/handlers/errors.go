package handlers

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/logger"
)

const internalErrorMessage = "internal server error"

var kindStatus = map[error]int{
	apperrors.ErrUnsupportedFormat:   fiber.StatusUnsupportedMediaType,
	apperrors.ErrSizeLimitExceeded:   fiber.StatusRequestEntityTooLarge,
	apperrors.ErrInvalidArgument:     fiber.StatusBadRequest,
	apperrors.ErrDocumentNotFound:    fiber.StatusNotFound,
	apperrors.ErrTurnInProgress:      fiber.StatusConflict,
	apperrors.ErrTranscriptionFailed: fiber.StatusBadGateway,
	apperrors.ErrSynthesisFailed:     fiber.StatusBadGateway,
	apperrors.ErrNoResponseGenerated: fiber.StatusBadGateway,
}

// StatusFor maps an error to the HTTP status reported to clients.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if kind := apperrors.KindOf(err); kind != nil {
		if status, ok := kindStatus[kind]; ok {
			return status
		}
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, log *zap.Logger, op string, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", zap.String(logger.FieldOp, op), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String(logger.FieldOp, op), zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"error": publicMessage(err, status),
	})
}

// publicMessage hides internal detail from server-side failures. A known
// kind is reported by its fixed text; anything else becomes a generic message.
func publicMessage(err error, status int) string {
	if status < fiber.StatusInternalServerError {
		return err.Error()
	}
	if kind := apperrors.KindOf(err); kind != nil {
		if _, ok := kindStatus[kind]; ok {
			return kind.Error()
		}
	}
	return internalErrorMessage
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "failed to open uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "failed to read uploaded file")
	}
	return data, nil
}
