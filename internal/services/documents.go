package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
	"alfredoptarigan/voice-interview/internal/repositories"
)

var supportedDocumentTypes = map[string]bool{
	MIMETypePDF:      true,
	MIMETypeText:     true,
	MIMETypeMarkdown: true,
}

type DocumentService interface {
	// InitializeUser creates the user record if it does not exist yet.
	InitializeUser(ctx context.Context, userID string) error
	StoreDocument(ctx context.Context, file models.DocumentFile, userID string) (*models.CVData, error)
	ListDocuments(ctx context.Context, userID string) ([]models.UserDocument, error)
	// UpdateDocument replaces the CV data of the user's newest document.
	UpdateDocument(ctx context.Context, cv models.CVData, userID string) error
	LatestCV(ctx context.Context, userID string) (*models.CVData, error)
}

type documentService struct {
	userRepo     repositories.UserRepository
	documentRepo repositories.DocumentRepository
	storage      StorageService
	parser       DocumentParserService
	analyzer     CVAnalyzer
	embeddings   EmbeddingService
	logger       *zap.Logger
}

func NewDocumentService(
	userRepo repositories.UserRepository,
	documentRepo repositories.DocumentRepository,
	storage StorageService,
	parser DocumentParserService,
	analyzer CVAnalyzer,
	embeddings EmbeddingService,
	log *zap.Logger,
) DocumentService {
	return &documentService{
		userRepo:     userRepo,
		documentRepo: documentRepo,
		storage:      storage,
		parser:       parser,
		analyzer:     analyzer,
		embeddings:   embeddings,
		logger:       logger.OrNop(log),
	}
}

// InitializeUser implements DocumentService.
func (d *documentService) InitializeUser(ctx context.Context, userID string) error {
	if err := requireUserID("InitializeUser", userID); err != nil {
		return err
	}

	created, err := d.userRepo.CreateIfAbsent(ctx, userID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageFailed, "InitializeUser", err)
	}

	d.logger.Debug("user initialized", zap.String(logger.FieldUserID, userID), zap.Bool("created", created))
	return nil
}

// StoreDocument implements DocumentService.
func (d *documentService) StoreDocument(ctx context.Context, file models.DocumentFile, userID string) (*models.CVData, error) {
	if err := requireUserID("StoreDocument", userID); err != nil {
		return nil, err
	}
	if len(file.Content) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "StoreDocument", "document %q is empty", file.FileName)
	}

	mimeType := DetectMIMEType(file.FileName, file.MIMEType)
	if !supportedDocumentTypes[mimeType] {
		return nil, apperrors.New(apperrors.ErrUnsupportedFormat, "StoreDocument",
			"document type %q; use PDF, plain text, or markdown", file.MIMEType)
	}

	log := logger.ForUser(d.logger, userID)
	log.Debug("processing document", zap.String("file_name", file.FileName), zap.String("file_type", mimeType))

	_, filePath, err := d.storage.SaveFile(userID, file.FileName, file.Content)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailed, "StoreDocument", err)
	}

	text, err := d.parser.ExtractText(filePath, mimeType)
	if err != nil {
		return nil, err
	}
	log.Debug("document text extracted", zap.Int("text_length", len(text)))

	cv, err := d.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	log.Debug("cv analysis complete")

	vector, err := d.embeddings.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if _, err := d.embeddings.Store(ctx, text, vector, models.EmbeddingMetadata{
		Type:      models.EmbeddingTypeCVDocument,
		UserID:    userID,
		Timestamp: time.Now(),
	}); err != nil {
		return nil, err
	}
	log.Debug("cv embeddings stored")

	document := &models.UserDocument{
		UserID:   userID,
		FileName: file.FileName,
		FileType: mimeType,
		FilePath: filePath,
		CVData:   datatypes.NewJSONType(*cv),
	}
	if err := d.documentRepo.Create(ctx, document); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailed, "StoreDocument", err)
	}

	log.Info("cv data stored successfully", zap.String("document_id", document.ID.String()))
	return cv, nil
}

// ListDocuments implements DocumentService.
func (d *documentService) ListDocuments(ctx context.Context, userID string) ([]models.UserDocument, error) {
	if err := requireUserID("ListDocuments", userID); err != nil {
		return nil, err
	}

	docs, err := d.documentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailed, "ListDocuments", err)
	}

	d.logger.Debug("documents fetched", zap.String(logger.FieldUserID, userID), zap.Int("count", len(docs)))
	return docs, nil
}

// UpdateDocument implements DocumentService.
func (d *documentService) UpdateDocument(ctx context.Context, cv models.CVData, userID string) error {
	if err := requireUserID("UpdateDocument", userID); err != nil {
		return err
	}

	if err := d.documentRepo.UpdateCVData(ctx, userID, cv); err != nil {
		if errors.Is(err, apperrors.ErrDocumentNotFound) {
			return err
		}
		return apperrors.Wrap(apperrors.ErrStorageFailed, "UpdateDocument", err)
	}

	d.logger.Debug("document updated successfully", zap.String(logger.FieldUserID, userID))
	return nil
}

// LatestCV implements DocumentService.
func (d *documentService) LatestCV(ctx context.Context, userID string) (*models.CVData, error) {
	if err := requireUserID("LatestCV", userID); err != nil {
		return nil, err
	}

	doc, err := d.documentRepo.FindLatest(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrStorageFailed, "LatestCV", err)
	}

	cv := doc.CVData.Data()
	return &cv, nil
}

func requireUserID(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.New(apperrors.ErrInvalidArgument, op, "user id is empty")
	}
	return nil
}
