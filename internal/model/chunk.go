package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Chunk stores a text chunk and its embedding for retrieval.
// The embedding uses pgvector's "[1,2,3]" text form so it fits a plain text column on every driver.
type Chunk struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	DocumentID uint            `gorm:"not null;index" json:"document_id"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	Embedding  pgvector.Vector `gorm:"type:text;not null" json:"-"`
	PageNumber *int            `json:"page_number,omitempty"`
	Position   int             `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EmbeddingVector returns the stored embedding slice.
func (c *Chunk) EmbeddingVector() []float32 {
	return c.Embedding.Slice()
}

// SetEmbedding stores vec as the chunk embedding.
func (c *Chunk) SetEmbedding(vec []float32) {
	c.Embedding = pgvector.NewVector(vec)
}
