// internal/models/offer.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OfferPricing is the priced output attached to a renewal offer.
type OfferPricing struct {
	Strategy              PricingStrategy `json:"strategy"`
	OriginalFeeCents      int64           `json:"original_fee_cents"`
	NewFeeCents           int64           `json:"new_fee_cents"`
	OriginalRevShareBps   int             `json:"original_rev_share_bps"`
	NewRevShareBps        int             `json:"new_rev_share_bps"`
	AdjustmentPercent     float64         `json:"adjustment_percent"`
	SuggestedDurationDays int             `json:"suggested_duration_days"`
}

func (p OfferPricing) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *OfferPricing) Scan(value interface{}) error {
	if value == nil {
		*p = OfferPricing{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("offer pricing: unsupported column type")
	}

	return json.Unmarshal(bytes, p)
}

type RenewalOffer struct {
	BaseModel
	LicenseID          uuid.UUID    `json:"license_id" gorm:"type:uuid;not null;index"`
	Pricing            OfferPricing `json:"pricing" gorm:"type:jsonb"`
	Status             OfferStatus  `json:"status" gorm:"type:varchar(20);default:'active';index"`
	ExpiresAt          time.Time    `json:"expires_at" gorm:"not null"`
	AcceptedAt         *time.Time   `json:"accepted_at"`
	RejectedAt         *time.Time   `json:"rejected_at"`
	SuccessorLicenseID *uuid.UUID   `json:"successor_license_id" gorm:"type:uuid"`

	// Relationships
	License License `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
}

// EffectiveStatus presents the offer as of now. Expiration is lazy: any read
// past expires_at is EXPIRED even if no write has happened yet, so correctness
// never depends on background reconciliation latency.
func (o *RenewalOffer) EffectiveStatus(now time.Time) OfferStatus {
	if o.Status == OfferStatusActive && !now.Before(o.ExpiresAt) {
		return OfferStatusExpired
	}
	return o.Status
}

// Acceptable reports whether the offer can still be accepted as of now.
func (o *RenewalOffer) Acceptable(now time.Time) bool {
	return o.EffectiveStatus(now) == OfferStatusActive
}
