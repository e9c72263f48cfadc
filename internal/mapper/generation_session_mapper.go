package mapper

import (
	"encoding/json"
	"time"

	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/model"
	"ai-edulab-be/pkg/store"

	"gorm.io/datatypes"
)

type GenerationSessionMapper struct{}

func NewGenerationSessionMapper() *GenerationSessionMapper {
	return &GenerationSessionMapper{}
}

func (m *GenerationSessionMapper) ToEntity(e *model.GenerationSession) *entity.GenerationSession {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var questions []store.GeneratedQuestion
	if len(e.Questions) > 0 {
		// Corrupt JSON degrades to an empty list rather than failing the read
		_ = json.Unmarshal(e.Questions, &questions)
	}

	var steps []store.ThinkingStep
	if len(e.ThinkingSteps) > 0 {
		_ = json.Unmarshal(e.ThinkingSteps, &steps)
	}

	return &entity.GenerationSession{
		Id:            e.Id,
		UserId:        e.UserId,
		TenantId:      e.TenantId,
		Kind:          e.Kind,
		Prompt:        e.Prompt,
		Answer:        e.Answer,
		Error:         e.Error,
		Status:        e.Status,
		Questions:     questions,
		ThinkingSteps: steps,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *GenerationSessionMapper) ToModel(e *entity.GenerationSession) *model.GenerationSession {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	questions, _ := json.Marshal(e.Questions)
	steps, _ := json.Marshal(e.ThinkingSteps)

	return &model.GenerationSession{
		Id:            e.Id,
		UserId:        e.UserId,
		TenantId:      e.TenantId,
		Kind:          e.Kind,
		Prompt:        e.Prompt,
		Answer:        e.Answer,
		Error:         e.Error,
		Status:        e.Status,
		Questions:     datatypes.JSON(questions),
		ThinkingSteps: datatypes.JSON(steps),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}
