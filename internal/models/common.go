// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleLicensor UserRole = "licensor"
	UserRoleBrand    UserRole = "brand"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type AssetStatus string

const (
	AssetStatusActive   AssetStatus = "active"
	AssetStatusArchived AssetStatus = "archived"
)

type LicenseType string

const (
	LicenseTypeExclusive          LicenseType = "exclusive"
	LicenseTypeNonExclusive       LicenseType = "non_exclusive"
	LicenseTypeExclusiveTerritory LicenseType = "exclusive_territory"
)

func (t LicenseType) Valid() bool {
	switch t {
	case LicenseTypeExclusive, LicenseTypeNonExclusive, LicenseTypeExclusiveTerritory:
		return true
	}
	return false
}

type LicenseStatus string

const (
	LicenseStatusDraft           LicenseStatus = "draft"
	LicenseStatusPendingApproval LicenseStatus = "pending_approval"
	LicenseStatusActive          LicenseStatus = "active"
	LicenseStatusExpired         LicenseStatus = "expired"
	LicenseStatusTerminated      LicenseStatus = "terminated"
	LicenseStatusSuspended       LicenseStatus = "suspended"
)

type ConflictReason string

const (
	ConflictReasonExclusiveOverlap  ConflictReason = "exclusive_overlap"
	ConflictReasonTerritoryOverlap  ConflictReason = "territory_overlap"
	ConflictReasonCompetitorBlocked ConflictReason = "competitor_blocked"
	// ConflictReasonDateOverlap is a reserved taxonomy value. No current
	// detection rule emits it.
	ConflictReasonDateOverlap ConflictReason = "date_overlap"
)

type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "active"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

type PricingStrategy string

const (
	StrategyFlatRenewal      PricingStrategy = "flat_renewal"
	StrategyUsageBased       PricingStrategy = "usage_based"
	StrategyMarketRate       PricingStrategy = "market_rate"
	StrategyPerformanceBased PricingStrategy = "performance_based"
	StrategyNegotiated       PricingStrategy = "negotiated"
	StrategyAutomatic        PricingStrategy = "automatic"
)

func (s PricingStrategy) Valid() bool {
	switch s {
	case StrategyFlatRenewal, StrategyUsageBased, StrategyMarketRate,
		StrategyPerformanceBased, StrategyNegotiated, StrategyAutomatic:
		return true
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen      DisputeStatus = "open"
	DisputeStatusResolved  DisputeStatus = "resolved"
	DisputeStatusWithdrawn DisputeStatus = "withdrawn"
)

type TransactionType string

const (
	TransactionTypeLicenseFee TransactionType = "license_fee"
	TransactionTypeRenewalFee TransactionType = "renewal_fee"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// MaxRevShareBps is the absolute upper bound for revenue-share basis points.
const MaxRevShareBps = 10000
