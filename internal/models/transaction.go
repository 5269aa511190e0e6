// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Transaction struct {
	BaseModel
	TransactionType  TransactionType   `json:"transaction_type" gorm:"type:varchar(20);not null;index"`
	LicenseID        uuid.UUID         `json:"license_id" gorm:"type:uuid;not null;index"`
	BrandID          uuid.UUID         `json:"brand_id" gorm:"type:uuid;not null;index"`
	AmountCents      int64             `json:"amount_cents" gorm:"not null"`
	PaymentReference string            `json:"payment_reference" gorm:"size:255"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ProcessedAt      *time.Time        `json:"processed_at"`
	FailureReason    string            `json:"failure_reason,omitempty" gorm:"type:text"`

	// Relationships
	License License `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
	Brand   User    `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
}
