package entity

import (
	"time"

	"github.com/google/uuid"
)

type MaterialEmbedding struct {
	Id             uuid.UUID
	Document       string
	EmbeddingValue []float32
	MaterialId     uuid.UUID
	ChunkIndex     int
	Page           int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
