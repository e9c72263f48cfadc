package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/mapper"
	"ai-edulab-be/internal/model"
	"ai-edulab-be/internal/repository/contract"
	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GenerationSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GenerationSessionMapper
}

func NewGenerationSessionRepository(db *gorm.DB) contract.GenerationSessionRepository {
	return &GenerationSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewGenerationSessionMapper(),
	}
}

func (r *GenerationSessionRepositoryImpl) Create(ctx context.Context, session *entity.GenerationSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *GenerationSessionRepositoryImpl) Update(ctx context.Context, session *entity.GenerationSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *GenerationSessionRepositoryImpl) AppendQuestion(ctx context.Context, sessionId, userId, tenantId uuid.UUID, question store.GeneratedQuestion) error {
	existing, err := r.FindOne(ctx, sessionId, userId, tenantId)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("generation session %s not found", sessionId)
	}

	questions := append(existing.Questions, question)
	raw, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	return r.db.WithContext(ctx).
		Model(&model.GenerationSession{}).
		Where("id = ? AND user_id = ? AND tenant_id = ?", sessionId, userId, tenantId).
		Update("questions", datatypes.JSON(raw)).Error
}

func (r *GenerationSessionRepositoryImpl) FindOne(ctx context.Context, sessionId, userId, tenantId uuid.UUID) (*entity.GenerationSession, error) {
	var m model.GenerationSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND tenant_id = ?", sessionId, userId, tenantId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
