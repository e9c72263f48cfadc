package implementation

import (
	"context"
	"errors"

	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/mapper"
	"ai-edulab-be/internal/model"
	"ai-edulab-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaterialRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MaterialMapper
}

func NewMaterialRepository(db *gorm.DB) contract.MaterialRepository {
	return &MaterialRepositoryImpl{
		db:     db,
		mapper: mapper.NewMaterialMapper(),
	}
}

func (r *MaterialRepositoryImpl) FindOne(ctx context.Context, tenantId, id uuid.UUID) (*entity.Material, error) {
	var m model.Material
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *MaterialRepositoryImpl) FindByIds(ctx context.Context, tenantId uuid.UUID, ids []uuid.UUID) ([]*entity.Material, error) {
	if len(ids) == 0 {
		return []*entity.Material{}, nil
	}

	var models []*model.Material
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Where("id IN ?", ids).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.Material, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
