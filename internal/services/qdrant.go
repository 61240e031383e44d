package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
)

const (
	payloadUserID    = "user_id"
	payloadType      = "type"
	payloadContent   = "content"
	payloadTimestamp = "timestamp"
)

type QdrantService interface {
	VectorStore
	InitCollection(ctx context.Context) error
	Close() error
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	logger         *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, vectorSize uint64, log *zap.Logger) (QdrantService, error) {
	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
		logger:         logger.OrNop(log),
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Info("✅ Collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Every query filters on owner and type; pruning orders by timestamp.
	indexes := []struct {
		field string
		kind  qdrant.FieldType
	}{
		{payloadUserID, qdrant.FieldType_FieldTypeKeyword},
		{payloadType, qdrant.FieldType_FieldTypeKeyword},
		{payloadTimestamp, qdrant.FieldType_FieldTypeInteger},
	}
	for _, idx := range indexes {
		_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: q.collectionName,
			FieldName:      idx.field,
			FieldType:      qdrant.PtrOf(idx.kind),
		})
		if err != nil {
			return fmt.Errorf("failed to create %s index: %w", idx.field, err)
		}
	}

	q.logger.Info("✅ Qdrant collection created successfully", zap.String("collection", q.collectionName))
	return nil
}

// Insert implements VectorStore.
func (q *qdrantService) Insert(ctx context.Context, record models.EmbeddingRecord) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(record.ID.String()),
		Vectors: qdrant.NewVectors(record.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			payloadUserID:    record.Metadata.UserID,
			payloadType:      string(record.Metadata.Type),
			payloadContent:   record.Content,
			payloadTimestamp: record.Metadata.Timestamp.UnixMilli(),
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// Search implements VectorStore.
func (q *qdrantService) Search(ctx context.Context, vector []float32, userID string, embeddingType models.EmbeddingType, threshold float64, limit int) ([]models.ScoredContent, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         scopeFilter(userID, embeddingType),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]models.ScoredContent, 0, len(points))
	for _, point := range points {
		results = append(results, models.ScoredContent{
			ID:      pointIDString(point.GetId()),
			Content: point.GetPayload()[payloadContent].GetStringValue(),
			Score:   float64(point.GetScore()),
		})
	}

	return results, nil
}

// Count implements VectorStore.
func (q *qdrantService) Count(ctx context.Context, userID string, embeddingType models.EmbeddingType) (int, error) {
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collectionName,
		Filter:         scopeFilter(userID, embeddingType),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// PruneOldest implements VectorStore.
func (q *qdrantService) PruneOldest(ctx context.Context, userID string, embeddingType models.EmbeddingType, keep int) (int, error) {
	total, err := q.Count(ctx, userID, embeddingType)
	if err != nil {
		return 0, err
	}
	excess := total - keep
	if excess <= 0 {
		return 0, nil
	}

	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collectionName,
		Filter:         scopeFilter(userID, embeddingType),
		Limit:          qdrant.PtrOf(uint32(excess)),
		OrderBy: &qdrant.OrderBy{
			Key:       payloadTimestamp,
			Direction: qdrant.PtrOf(qdrant.Direction_Asc),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scroll oldest points: %w", err)
	}
	if len(points) == 0 {
		return 0, nil
	}

	ids := make([]*qdrant.PointId, 0, len(points))
	for _, point := range points {
		ids = append(ids, point.GetId())
	}

	_, err = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(ids...),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete points: %w", err)
	}

	q.logger.Debug("pruned embeddings",
		zap.String(logger.FieldUserID, userID),
		zap.String("type", string(embeddingType)),
		zap.Int("removed", len(ids)),
	)
	return len(ids), nil
}

// Close implements QdrantService.
func (q *qdrantService) Close() error {
	return q.client.Close()
}

func scopeFilter(userID string, embeddingType models.EmbeddingType) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadUserID, userID),
			qdrant.NewMatch(payloadType, string(embeddingType)),
		},
	}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuidStr := id.GetUuid(); uuidStr != "" {
		return uuidStr
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
