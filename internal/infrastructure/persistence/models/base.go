package models

import (
	"time"

	"github.com/erp/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel carries the persistence fields shared by every table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func newBaseModel(e shared.BaseEntity) BaseModel {
	return BaseModel{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// AggregateModel extends BaseModel with the optimistic-lock version column
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func newAggregateModel(a shared.BaseAggregateRoot) AggregateModel {
	return AggregateModel{
		BaseModel: newBaseModel(a.BaseEntity),
		Version:   a.Version,
	}
}
