// internal/models/asset.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Asset struct {
	BaseModel
	OwnerID     uuid.UUID      `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"size:100;index"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Status      AssetStatus    `json:"status" gorm:"type:varchar(20);default:'active';index"`
	Metadata    JSONB          `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	Owner    User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Licenses []License `json:"licenses,omitempty" gorm:"foreignKey:AssetID"`
}
