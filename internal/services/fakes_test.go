package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"alfredoptarigan/voice-interview/internal/models"
)

// memoryVectorStore is an in-process VectorStore used across service tests.
type memoryVectorStore struct {
	mu        sync.Mutex
	records   []models.EmbeddingRecord
	insertErr error
	// extraHits are returned by Search regardless of threshold or limit.
	extraHits []models.ScoredContent
}

func (m *memoryVectorStore) Insert(ctx context.Context, record models.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memoryVectorStore) Search(ctx context.Context, vector []float32, userID string, embeddingType models.EmbeddingType, threshold float64, limit int) ([]models.ScoredContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hits []models.ScoredContent
	for _, r := range m.records {
		if r.Metadata.UserID != userID || r.Metadata.Type != embeddingType {
			continue
		}
		score := cosine(vector, r.Vector)
		if score < threshold {
			continue
		}
		hits = append(hits, models.ScoredContent{ID: r.ID.String(), Content: r.Content, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return append(hits, m.extraHits...), nil
}

func (m *memoryVectorStore) Count(ctx context.Context, userID string, embeddingType models.EmbeddingType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.Metadata.UserID == userID && r.Metadata.Type == embeddingType {
			n++
		}
	}
	return n, nil
}

func (m *memoryVectorStore) PruneOldest(ctx context.Context, userID string, embeddingType models.EmbeddingType, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scoped []int
	for i, r := range m.records {
		if r.Metadata.UserID == userID && r.Metadata.Type == embeddingType {
			scoped = append(scoped, i)
		}
	}
	if len(scoped) <= keep {
		return 0, nil
	}
	sort.SliceStable(scoped, func(a, b int) bool {
		return m.records[scoped[a]].Metadata.Timestamp.Before(m.records[scoped[b]].Metadata.Timestamp)
	})
	drop := make(map[int]bool)
	for _, idx := range scoped[:len(scoped)-keep] {
		drop[idx] = true
	}
	kept := m.records[:0]
	for i, r := range m.records {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return len(drop), nil
}

func (m *memoryVectorStore) all() []models.EmbeddingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.EmbeddingRecord(nil), m.records...)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// hashEmbedder maps text to a deterministic vector; identical text yields
// identical vectors.
type hashEmbedder struct {
	err   error
	calls int
}

func (h *hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	vector := make([]float32, 8)
	for i := range vector {
		f := fnv.New32a()
		f.Write([]byte{byte(i)})
		f.Write([]byte(text))
		vector[i] = float32(f.Sum32()%1000) / 1000
	}
	return vector, nil
}

var errFake = errors.New("fake failure")
