package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
	"alfredoptarigan/voice-interview/internal/services"
)

type DocumentHandler struct {
	documentService services.DocumentService
	maxFileSize     int64
	logger          *zap.Logger
}

func NewDocumentHandler(documentService services.DocumentService, maxFileSize int64, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxFileSize:     maxFileSize,
		logger:          logger.OrNop(log),
	}
}

// HandleUpload handles POST /users/:userId/documents
func (h *DocumentHandler) HandleUpload(c *fiber.Ctx) error {
	userID := c.Params("userId")

	cvFile, err := c.FormFile("cv")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No valid file uploaded. Please upload 'cv' as a PDF, text, or markdown file.",
		})
	}

	if cvFile.Size > h.maxFileSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("CV file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	content, err := readFormFile(cvFile)
	if err != nil {
		return respondError(c, h.logger, "StoreDocument", err)
	}

	cv, err := h.documentService.StoreDocument(c.UserContext(), models.DocumentFile{
		FileName: cvFile.Filename,
		MIMEType: cvFile.Header.Get(fiber.HeaderContentType),
		Content:  content,
	}, userID)
	if err != nil {
		return respondError(c, h.logger, "StoreDocument", err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		FileName: cvFile.Filename,
		FileType: services.DetectMIMEType(cvFile.Filename, cvFile.Header.Get(fiber.HeaderContentType)),
		CVData:   *cv,
	})
}

// HandleList handles GET /users/:userId/documents
func (h *DocumentHandler) HandleList(c *fiber.Ctx) error {
	docs, err := h.documentService.ListDocuments(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, h.logger, "ListDocuments", err)
	}

	if docs == nil {
		docs = []models.UserDocument{}
	}
	return c.JSON(fiber.Map{
		"documents": docs,
	})
}

// HandleUpdateLatest handles PUT /users/:userId/documents/latest
func (h *DocumentHandler) HandleUpdateLatest(c *fiber.Ctx) error {
	var req models.UpdateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if err := h.documentService.UpdateDocument(c.UserContext(), req.CVData, c.Params("userId")); err != nil {
		return respondError(c, h.logger, "UpdateDocument", err)
	}

	return c.JSON(fiber.Map{
		"message": "Document updated successfully",
	})
}
