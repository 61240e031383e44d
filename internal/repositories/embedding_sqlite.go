package repositories

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/glebarez/go-sqlite"

	"alfredoptarigan/voice-interview/internal/models"
)

const embeddingSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    type TEXT NOT NULL,
    content TEXT NOT NULL,
    vector BLOB NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_embeddings_owner ON embeddings(user_id, type, created_at);
`

// SQLiteEmbeddingStore keeps embedding records in a local SQLite file and
// ranks them with cosine similarity computed in process.
type SQLiteEmbeddingStore struct {
	conn *sql.DB
}

func NewSQLiteEmbeddingStore(ctx context.Context, dbPath string) (*SQLiteEmbeddingStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, embeddingSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteEmbeddingStore{conn: conn}, nil
}

func (s *SQLiteEmbeddingStore) Insert(ctx context.Context, record models.EmbeddingRecord) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO embeddings (id, user_id, type, content, vector, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID.String(),
		record.Metadata.UserID,
		string(record.Metadata.Type),
		record.Content,
		serializeVector(record.Vector),
		record.Metadata.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// Search returns at most limit records owned by userID with the given type
// whose cosine similarity to vector is at least threshold, best first.
func (s *SQLiteEmbeddingStore) Search(ctx context.Context, vector []float32, userID string, embeddingType models.EmbeddingType, threshold float64, limit int) ([]models.ScoredContent, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, content, vector FROM embeddings WHERE user_id = ? AND type = ?`,
		userID, string(embeddingType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredContent
	for rows.Next() {
		var (
			id          string
			content     string
			vectorBytes []byte
		)
		if err := rows.Scan(&id, &content, &vectorBytes); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		similarity := cosineSimilarity(vector, deserializeVector(vectorBytes))
		if similarity >= threshold {
			results = append(results, models.ScoredContent{ID: id, Content: content, Score: similarity})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	return results, nil
}

func (s *SQLiteEmbeddingStore) Count(ctx context.Context, userID string, embeddingType models.EmbeddingType) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE user_id = ? AND type = ?`,
		userID, string(embeddingType),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// PruneOldest deletes all but the newest keep records of the given owner and type.
func (s *SQLiteEmbeddingStore) PruneOldest(ctx context.Context, userID string, embeddingType models.EmbeddingType, keep int) (int, error) {
	res, err := s.conn.ExecContext(ctx, `
DELETE FROM embeddings
WHERE user_id = ? AND type = ? AND id NOT IN (
    SELECT id FROM embeddings
    WHERE user_id = ? AND type = ?
    ORDER BY created_at DESC, rowid DESC
    LIMIT ?
)`, userID, string(embeddingType), userID, string(embeddingType), keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune embeddings: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned rows: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteEmbeddingStore) Close() error {
	return s.conn.Close()
}

// serializeVector converts a float32 slice to bytes for storage
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func deserializeVector(data []byte) []float32 {
	vector := make([]float32, len(data)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
