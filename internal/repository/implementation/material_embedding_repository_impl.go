package implementation

import (
	"context"

	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/mapper"
	"ai-edulab-be/internal/model"
	"ai-edulab-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type MaterialEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MaterialEmbeddingMapper
}

func NewMaterialEmbeddingRepository(db *gorm.DB) contract.MaterialEmbeddingRepository {
	return &MaterialEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewMaterialEmbeddingMapper(),
	}
}

func (r *MaterialEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.MaterialEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	models := make([]*model.MaterialEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = r.mapper.ToModel(e)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *MaterialEmbeddingRepositoryImpl) DeleteByMaterialId(ctx context.Context, materialId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("material_id = ?", materialId).Delete(&model.MaterialEmbedding{}).Error
}

// SearchSimilarWithScore returns chunks with similarity scores, filtered by threshold.
// Cosine distance in pgvector is 1 - cosine_similarity, so similarity is
// computed as 1 - (embedding_value <=> query_vector).
func (r *MaterialEmbeddingRepositoryImpl) SearchSimilarWithScore(
	ctx context.Context,
	embedding []float32,
	limit int,
	tenantId uuid.UUID,
	materialIds []uuid.UUID,
	threshold float64,
) ([]*contract.ScoredMaterialEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.MaterialEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	// Join with materials to enforce tenant isolation
	query := r.db.WithContext(ctx).
		Table("material_embeddings").
		Select("material_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN materials ON materials.id = material_embeddings.material_id").
		Where("materials.tenant_id = ?", tenantId).
		Where("material_embeddings.deleted_at IS NULL").
		Where("materials.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)

	if len(materialIds) > 0 {
		query = query.Where("material_embeddings.material_id IN ?", materialIds)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredMaterialEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredMaterialEmbedding{
			Embedding:  r.mapper.ToEntity(&res.MaterialEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
