package contract

import (
	"context"

	"ai-edulab-be/internal/entity"

	"github.com/google/uuid"
)

type MaterialRepository interface {
	FindOne(ctx context.Context, tenantId, id uuid.UUID) (*entity.Material, error)
	FindByIds(ctx context.Context, tenantId uuid.UUID, ids []uuid.UUID) ([]*entity.Material, error)
}

// ScoredMaterialEmbedding wraps MaterialEmbedding with its similarity score
type ScoredMaterialEmbedding struct {
	Embedding  *entity.MaterialEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type MaterialEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.MaterialEmbedding) error
	DeleteByMaterialId(ctx context.Context, materialId uuid.UUID) error
	// SearchSimilarWithScore returns tenant-scoped chunks with their
	// similarity scores, optionally restricted to the given materials.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, tenantId uuid.UUID, materialIds []uuid.UUID, threshold float64) ([]*ScoredMaterialEmbedding, error)
}
