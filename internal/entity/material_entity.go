package entity

import (
	"time"

	"github.com/google/uuid"
)

type Material struct {
	Id        uuid.UUID
	TenantId  uuid.UUID
	Name      string
	Content   string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
