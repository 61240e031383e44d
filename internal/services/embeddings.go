package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/apperrors"
	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
)

// VectorStore persists embedding records and answers similarity queries
// scoped to one user and one type.
type VectorStore interface {
	Insert(ctx context.Context, record models.EmbeddingRecord) error
	Search(ctx context.Context, vector []float32, userID string, embeddingType models.EmbeddingType, threshold float64, limit int) ([]models.ScoredContent, error)
	Count(ctx context.Context, userID string, embeddingType models.EmbeddingType) (int, error)
	PruneOldest(ctx context.Context, userID string, embeddingType models.EmbeddingType, keep int) (int, error)
}

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Store always creates a new record and returns its id.
	Store(ctx context.Context, text string, vector []float32, metadata models.EmbeddingMetadata) (string, error)
	FindSimilar(ctx context.Context, vector []float32, userID string, embeddingType models.EmbeddingType, threshold float64, topK int) ([]models.ScoredContent, error)
	CountRecords(ctx context.Context, userID string, embeddingType models.EmbeddingType) (int, error)
}

type embeddingService struct {
	embedder            Embedder
	store               VectorStore
	maxInterviewRecords int
	logger              *zap.Logger
	now                 func() time.Time
}

// NewEmbeddingService builds the adapter. maxInterviewRecords caps the
// interview_response history per user; 0 keeps everything.
func NewEmbeddingService(embedder Embedder, store VectorStore, maxInterviewRecords int, log *zap.Logger) EmbeddingService {
	return &embeddingService{
		embedder:            embedder,
		store:               store,
		maxInterviewRecords: maxInterviewRecords,
		logger:              logger.OrNop(log),
		now:                 time.Now,
	}
}

// Embed implements EmbeddingService.
func (e *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "Embed", "text is empty")
	}

	vector, err := e.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	return vector, nil
}

// Store implements EmbeddingService.
func (e *embeddingService) Store(ctx context.Context, text string, vector []float32, metadata models.EmbeddingMetadata) (string, error) {
	if err := validateScope("Store", metadata.UserID, metadata.Type); err != nil {
		return "", err
	}
	if len(vector) == 0 {
		return "", apperrors.New(apperrors.ErrInvalidArgument, "Store", "vector is empty")
	}
	if metadata.Timestamp.IsZero() {
		metadata.Timestamp = e.now()
	}

	record := models.EmbeddingRecord{
		ID:       uuid.New(),
		Content:  text,
		Vector:   vector,
		Metadata: metadata,
	}
	if err := e.store.Insert(ctx, record); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorageFailed, "Store", err)
	}

	e.logger.Debug("embedding stored",
		zap.String(logger.FieldUserID, metadata.UserID),
		zap.String("type", string(metadata.Type)),
		zap.String("id", record.ID.String()),
	)

	if metadata.Type == models.EmbeddingTypeInterviewResponse && e.maxInterviewRecords > 0 {
		removed, err := e.store.PruneOldest(ctx, metadata.UserID, metadata.Type, e.maxInterviewRecords)
		if err != nil {
			// the record itself is stored; pruning retries on the next store
			e.logger.Warn("failed to prune interview history", zap.Error(err))
		} else if removed > 0 {
			e.logger.Debug("pruned interview history", zap.Int("removed", removed))
		}
	}

	return record.ID.String(), nil
}

// FindSimilar implements EmbeddingService.
func (e *embeddingService) FindSimilar(ctx context.Context, vector []float32, userID string, embeddingType models.EmbeddingType, threshold float64, topK int) ([]models.ScoredContent, error) {
	if err := validateScope("FindSimilar", userID, embeddingType); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []models.ScoredContent{}, nil
	}

	hits, err := e.store.Search(ctx, vector, userID, embeddingType, threshold, topK)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailed, "FindSimilar", err)
	}

	results := make([]models.ScoredContent, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= threshold {
			results = append(results, hit)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// CountRecords implements EmbeddingService.
func (e *embeddingService) CountRecords(ctx context.Context, userID string, embeddingType models.EmbeddingType) (int, error) {
	if err := validateScope("CountRecords", userID, embeddingType); err != nil {
		return 0, err
	}

	count, err := e.store.Count(ctx, userID, embeddingType)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageFailed, "CountRecords", err)
	}
	return count, nil
}

func validateScope(op, userID string, embeddingType models.EmbeddingType) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.New(apperrors.ErrInvalidArgument, op, "user id is empty")
	}
	if !embeddingType.Valid() {
		return apperrors.New(apperrors.ErrInvalidArgument, op, "unknown embedding type %q", embeddingType)
	}
	return nil
}
