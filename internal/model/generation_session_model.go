package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GenerationSession struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	TenantId      uuid.UUID      `gorm:"type:uuid;not null;index"`
	Kind          string         `gorm:"type:varchar(32);not null"`
	Prompt        string         `gorm:"type:text"`
	Answer        string         `gorm:"type:text"`
	Error         string         `gorm:"type:text"`
	Status        string         `gorm:"type:varchar(16);not null;default:'running'"`
	Questions     datatypes.JSON `gorm:"type:jsonb"`
	ThinkingSteps datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

func (GenerationSession) TableName() string {
	return "generation_sessions"
}
