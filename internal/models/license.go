// internal/models/license.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SignatureState tracks which counter-parties have signed. A license may only
// become ACTIVE once both signatures are present.
type SignatureState struct {
	LicensorSignedAt *time.Time `json:"licensor_signed_at,omitempty"`
	BrandSignedAt    *time.Time `json:"brand_signed_at,omitempty"`
}

func (s SignatureState) FullySigned() bool {
	return s.LicensorSignedAt != nil && s.BrandSignedAt != nil
}

func (s SignatureState) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SignatureState) Scan(value interface{}) error {
	if value == nil {
		*s = SignatureState{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("signature state: unsupported column type")
	}

	return json.Unmarshal(bytes, s)
}

type License struct {
	BaseModel
	AssetID             uuid.UUID      `json:"asset_id" gorm:"type:uuid;not null;index"`
	BrandID             uuid.UUID      `json:"brand_id" gorm:"type:uuid;not null;index"`
	LicenseType         LicenseType    `json:"license_type" gorm:"type:varchar(25);not null;index"`
	Status              LicenseStatus  `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	StartDate           time.Time      `json:"start_date" gorm:"not null"`
	EndDate             time.Time      `json:"end_date" gorm:"not null"`
	FeeCents            int64          `json:"fee_cents" gorm:"not null;default:0"`
	RevShareBps         int            `json:"rev_share_bps" gorm:"not null;default:0"`
	Scope               Scope          `json:"scope" gorm:"type:jsonb"`
	Territories         pq.StringArray `json:"territories" gorm:"type:text[]"`
	ExclusivityCategory string         `json:"exclusivity_category,omitempty" gorm:"size:100;index"`
	CompetitorExclusions pq.StringArray `json:"competitor_exclusions" gorm:"type:text[]"`
	AutoRenew           bool           `json:"auto_renew" gorm:"default:false"`
	SignatureState      SignatureState `json:"signature_state" gorm:"type:jsonb"`
	ParentLicenseID     *uuid.UUID     `json:"parent_license_id" gorm:"type:uuid;index"`
	RenewalOfferID      *uuid.UUID     `json:"renewal_offer_id" gorm:"type:uuid"`
	TerminatedAt        *time.Time     `json:"terminated_at,omitempty"`
	TerminationReason   string         `json:"termination_reason,omitempty" gorm:"type:text"`

	// Relationships
	Asset  Asset    `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
	Brand  User     `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
	Parent *License `json:"parent,omitempty" gorm:"foreignKey:ParentLicenseID"`
}

// EffectiveStatus presents the status as of now: an ACTIVE license whose end
// date has passed reads as EXPIRED regardless of a pending reconciliation.
func (l *License) EffectiveStatus(now time.Time) LicenseStatus {
	if l.Status == LicenseStatusActive && !now.Before(EndBoundary(l.EndDate)) {
		return LicenseStatusExpired
	}
	return l.Status
}

// Binding reports whether this license still constrains new grants on its
// asset as of now. EXPIRED and TERMINATED licenses never conflict.
func (l *License) Binding(now time.Time) bool {
	switch l.EffectiveStatus(now) {
	case LicenseStatusActive, LicenseStatusPendingApproval, LicenseStatusSuspended:
		return true
	}
	return false
}

// DurationDays is the number of whole days the grant covers, counting the
// inclusive end day.
func (l *License) DurationDays() int {
	return int(EndBoundary(l.EndDate).Sub(l.StartDate.UTC().Truncate(24*time.Hour)) / (24 * time.Hour))
}

// WithinGracePeriod reports whether now is no more than graceDays past the end
// of the license term.
func (l *License) WithinGracePeriod(now time.Time, graceDays int) bool {
	deadline := EndBoundary(l.EndDate).AddDate(0, 0, graceDays)
	return now.Before(deadline)
}

type Conflict struct {
	ConflictingLicenseID uuid.UUID      `json:"conflicting_license_id"`
	Reason               ConflictReason `json:"reason"`
	Details              string         `json:"details"`
}

// ConflictResult is recomputed on every check and never persisted; license
// state can change between calls.
type ConflictResult struct {
	HasConflicts bool       `json:"has_conflicts"`
	Conflicts    []Conflict `json:"conflicts"`
}

type Dispute struct {
	BaseModel
	LicenseID uuid.UUID     `json:"license_id" gorm:"type:uuid;not null;index"`
	RaisedBy  uuid.UUID     `json:"raised_by" gorm:"type:uuid;not null"`
	Kind      string        `json:"kind" gorm:"size:50;not null"`
	Status    DisputeStatus `json:"status" gorm:"type:varchar(20);default:'open';index"`
	Details   string        `json:"details" gorm:"type:text"`
	ResolvedAt *time.Time   `json:"resolved_at"`

	// Relationships
	License License `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
}
