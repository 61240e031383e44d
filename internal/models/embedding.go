package models

import (
	"time"

	"github.com/google/uuid"
)

type EmbeddingType string

const (
	EmbeddingTypeCVDocument        EmbeddingType = "cv_document"
	EmbeddingTypeInterviewResponse EmbeddingType = "interview_response"
)

func (t EmbeddingType) Valid() bool {
	return t == EmbeddingTypeCVDocument || t == EmbeddingTypeInterviewResponse
}

type EmbeddingMetadata struct {
	Type      EmbeddingType `json:"type"`
	UserID    string        `json:"userId"`
	Timestamp time.Time     `json:"timestamp"`
}

// EmbeddingRecord is never mutated once stored.
type EmbeddingRecord struct {
	ID       uuid.UUID
	Content  string
	Vector   []float32
	Metadata EmbeddingMetadata
}

// ScoredContent is a similarity search hit.
type ScoredContent struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
