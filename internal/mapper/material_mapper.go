package mapper

import (
	"time"

	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type MaterialMapper struct{}

func NewMaterialMapper() *MaterialMapper {
	return &MaterialMapper{}
}

func (m *MaterialMapper) ToEntity(e *model.Material) *entity.Material {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.Material{
		Id:        e.Id,
		TenantId:  e.TenantId,
		Name:      e.Name,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: e.DeletedAt.Valid,
	}
}

func (m *MaterialMapper) ToModel(e *entity.Material) *model.Material {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.Material{
		Id:        e.Id,
		TenantId:  e.TenantId,
		Name:      e.Name,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

type MaterialEmbeddingMapper struct{}

func NewMaterialEmbeddingMapper() *MaterialEmbeddingMapper {
	return &MaterialEmbeddingMapper{}
}

func (m *MaterialEmbeddingMapper) ToEntity(e *model.MaterialEmbedding) *entity.MaterialEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.MaterialEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		MaterialId:     e.MaterialId,
		ChunkIndex:     e.ChunkIndex,
		Page:           e.Page,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *MaterialEmbeddingMapper) ToModel(e *entity.MaterialEmbedding) *model.MaterialEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.MaterialEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		MaterialId:     e.MaterialId,
		ChunkIndex:     e.ChunkIndex,
		Page:           e.Page,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}
