package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/models"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *models.UserDocument) error
	ListByUser(ctx context.Context, userID string) ([]models.UserDocument, error)
	FindLatest(ctx context.Context, userID string) (*models.UserDocument, error)
	UpdateCVData(ctx context.Context, userID string, cv models.CVData) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create implements DocumentRepository.
func (d *documentRepository) Create(ctx context.Context, document *models.UserDocument) error {
	if err := d.db.WithContext(ctx).Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// ListByUser implements DocumentRepository. Newest documents come first.
func (d *documentRepository) ListByUser(ctx context.Context, userID string) ([]models.UserDocument, error) {
	var docs []models.UserDocument
	if err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return docs, nil
}

// FindLatest implements DocumentRepository.
func (d *documentRepository) FindLatest(ctx context.Context, userID string) (*models.UserDocument, error) {
	var doc models.UserDocument
	if err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrDocumentNotFound, "FindLatest", err)
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// UpdateCVData implements DocumentRepository. It replaces the CV data of the user's newest document in place.
func (d *documentRepository) UpdateCVData(ctx context.Context, userID string, cv models.CVData) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.UserDocument
		if err := tx.Where("user_id = ?", userID).Order("created_at DESC").First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Wrap(apperrors.ErrDocumentNotFound, "UpdateCVData", err)
			}
			return fmt.Errorf("failed to find document: %w", err)
		}

		result := tx.Model(&models.UserDocument{}).
			Where("id = ?", doc.ID).
			Updates(map[string]interface{}{
				"cv_data":    datatypes.NewJSONType(cv),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update document: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrDocumentNotFound, "UpdateCVData", "document %s vanished", doc.ID)
		}

		return nil
	})
}
