package repositories

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/voice-interview/internal/models"
)

func newTestEmbeddingStore(t *testing.T) *SQLiteEmbeddingStore {
	t.Helper()
	store, err := NewSQLiteEmbeddingStore(context.Background(), filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatalf("open embedding store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insertRecord(t *testing.T, store *SQLiteEmbeddingStore, userID string, typ models.EmbeddingType, content string, vector []float32, at time.Time) {
	t.Helper()
	err := store.Insert(context.Background(), models.EmbeddingRecord{
		ID:       uuid.New(),
		Content:  content,
		Vector:   vector,
		Metadata: models.EmbeddingMetadata{Type: typ, UserID: userID, Timestamp: at},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestSearchIsScopedByUserAndType(t *testing.T) {
	store := newTestEmbeddingStore(t)
	now := time.Now()

	insertRecord(t, store, "alice", models.EmbeddingTypeInterviewResponse, "alice answer", []float32{1, 0, 0}, now)
	insertRecord(t, store, "alice", models.EmbeddingTypeCVDocument, "alice cv", []float32{1, 0, 0}, now)
	insertRecord(t, store, "bob", models.EmbeddingTypeInterviewResponse, "bob answer", []float32{1, 0, 0}, now)

	results, err := store.Search(context.Background(), []float32{1, 0, 0}, "alice", models.EmbeddingTypeInterviewResponse, 0.5, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "alice answer" {
		t.Errorf("unexpected content: %q", results[0].Content)
	}
}

func TestSearchThresholdLimitAndOrder(t *testing.T) {
	store := newTestEmbeddingStore(t)
	now := time.Now()

	insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "exact", []float32{1, 0}, now)
	insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "close", []float32{1, 0.2}, now)
	insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "closer", []float32{1, 0.1}, now)
	insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "orthogonal", []float32{0, 1}, now)

	results, err := store.Search(context.Background(), []float32{1, 0}, "u", models.EmbeddingTypeInterviewResponse, 0.7, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "exact" || results[1].Content != "closer" {
		t.Errorf("unexpected order: %+v", results)
	}
	for _, r := range results {
		if r.Score < 0.7 {
			t.Errorf("score %f below threshold", r.Score)
		}
	}
}

func TestInsertNeverDeduplicates(t *testing.T) {
	store := newTestEmbeddingStore(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "same", []float32{1, 1}, now)
	}

	count, err := store.Count(context.Background(), "u", models.EmbeddingTypeInterviewResponse)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 records, got %d", count)
	}
}

func TestPruneOldestKeepsNewest(t *testing.T) {
	store := newTestEmbeddingStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "first", []float32{1, 0}, base)
	insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "second", []float32{1, 0}, base.Add(time.Minute))
	insertRecord(t, store, "u", models.EmbeddingTypeInterviewResponse, "third", []float32{1, 0}, base.Add(2*time.Minute))
	insertRecord(t, store, "u", models.EmbeddingTypeCVDocument, "cv", []float32{1, 0}, base)

	pruned, err := store.PruneOldest(context.Background(), "u", models.EmbeddingTypeInterviewResponse, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned, got %d", pruned)
	}

	results, err := store.Search(context.Background(), []float32{1, 0}, "u", models.EmbeddingTypeInterviewResponse, 0, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.Content == "first" {
			t.Error("oldest record should have been pruned")
		}
	}

	cvCount, err := store.Count(context.Background(), "u", models.EmbeddingTypeCVDocument)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if cvCount != 1 {
		t.Errorf("cv records must not be pruned, got %d", cvCount)
	}
}

func TestVectorRoundTripAndSimilarity(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out := deserializeVector(serializeVector(in))
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: %f != %f", i, in[i], out[i])
		}
	}

	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched lengths: %f", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: %f", got)
	}
}

func TestEmbeddingStoreAndDocumentDatabaseShareProcess(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(newTestDB(t))
	store := newTestEmbeddingStore(t)

	if _, err := users.CreateIfAbsent(ctx, "u1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	insertRecord(t, store, "u1", models.EmbeddingTypeCVDocument, "cv", []float32{1, 0}, time.Now())

	count, err := store.Count(ctx, "u1", models.EmbeddingTypeCVDocument)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
