// internal/services/renewal_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/database"
	"github.com/brandgrid/licensing-backend/internal/models"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

type RenewalService struct {
	db                  *gorm.DB
	cfg                 config.RenewalConfig
	licenseService      *LicenseService
	conflictService     *ConflictService
	paymentService      *PaymentService
	analyticsService    *AnalyticsService
	notificationService *NotificationService
}

type GenerateOfferRequest struct {
	Strategy                models.PricingStrategy `json:"strategy" validate:"required"`
	CustomAdjustmentPercent *float64               `json:"custom_adjustment_percent,omitempty"`
}

type AcceptOfferRequest struct {
	OfferID uuid.UUID `json:"offer_id" validate:"required"`
}

func NewRenewalService(db *gorm.DB, cfg config.RenewalConfig, licenseService *LicenseService, conflictService *ConflictService, paymentService *PaymentService, analyticsService *AnalyticsService, notificationService *NotificationService) *RenewalService {
	return &RenewalService{
		db:                  db,
		cfg:                 cfg,
		licenseService:      licenseService,
		conflictService:     conflictService,
		paymentService:      paymentService,
		analyticsService:    analyticsService,
		notificationService: notificationService,
	}
}

// GetEligibility evaluates renewal standing without side effects. An
// ineligible license is a normal result here, not an error; only the offer
// paths convert it to IneligibleError.
func (s *RenewalService) GetEligibility(licenseID uuid.UUID) (*EligibilityResult, error) {
	var license models.License
	if err := s.db.First(&license, licenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "license"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	inputs, err := s.gatherEligibilityInputs(s.db, &license)
	if err != nil {
		return nil, err
	}

	result := EvaluateEligibility(&license, inputs, s.cfg, time.Now().UTC())
	return &result, nil
}

// GenerateOffer prices a renewal and creates the offer inside the per-license
// critical section. A prior ACTIVE offer is superseded (marked EXPIRED) in the
// same transaction; a lost supersession race trips the one-active-offer
// unique index and surfaces as ConcurrencyAbortError.
func (s *RenewalService) GenerateOffer(licenseID uuid.UUID, req *GenerateOfferRequest) (*models.RenewalOffer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("", err.Error())
	}

	now := time.Now().UTC()
	var offer *models.RenewalOffer

	err := database.WithLicenseLock(s.db, licenseID, func(tx *gorm.DB) error {
		var license models.License
		if err := tx.First(&license, licenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperrors.NotFoundError{Resource: "license"}
			}
			return fmt.Errorf("database error: %w", err)
		}

		inputs, err := s.gatherEligibilityInputs(tx, &license)
		if err != nil {
			return err
		}

		eligibility := EvaluateEligibility(&license, inputs, s.cfg, now)
		if !eligibility.Eligible {
			return &apperrors.IneligibleError{Reasons: eligibility.Reasons}
		}

		signals, err := s.gatherSignals(tx, &license, inputs)
		if err != nil {
			return err
		}

		pricing, err := PriceRenewal(&license, *eligibility.SuggestedTerms, req.Strategy, req.CustomAdjustmentPercent, signals)
		if err != nil {
			return err
		}

		// Supersession: at most one ACTIVE offer per license.
		err = tx.Model(&models.RenewalOffer{}).
			Where("license_id = ? AND status = ?", licenseID, models.OfferStatusActive).
			Update("status", models.OfferStatusExpired).Error
		if err != nil {
			return fmt.Errorf("failed to supersede prior offer: %w", err)
		}

		offer = &models.RenewalOffer{
			LicenseID: licenseID,
			Pricing:   pricing,
			Status:    models.OfferStatusActive,
			ExpiresAt: now.AddDate(0, 0, s.cfg.OfferTTLDays),
		}
		return tx.Create(offer).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &apperrors.ConcurrencyAbortError{Err: err}
		}
		return nil, err
	}

	go s.sendOfferNotification(offer, "renewal_offer_created")

	return offer, nil
}

// GetCurrentOffer returns the license's most recent offer with lazy
// expiration applied.
func (s *RenewalService) GetCurrentOffer(licenseID uuid.UUID) (*models.RenewalOffer, error) {
	var offer models.RenewalOffer
	err := s.db.Where("license_id = ?", licenseID).
		Order("created_at DESC").
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "renewal offer"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	offer.Status = offer.EffectiveStatus(time.Now().UTC())
	return &offer, nil
}

// AcceptOffer accepts the license's current active offer and atomically
// creates the successor license. Both the per-license and the per-asset
// critical sections are held, since the successor must be conflict-checked
// against the asset's license set before commit; any conflict rolls the whole
// acceptance back.
func (s *RenewalService) AcceptOffer(licenseID uuid.UUID, req *AcceptOfferRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("", err.Error())
	}

	now := time.Now().UTC()
	var successor *models.License
	var accepted *models.RenewalOffer

	err := database.WithLicenseLock(s.db, licenseID, func(tx *gorm.DB) error {
		var parent models.License
		if err := tx.First(&parent, licenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperrors.NotFoundError{Resource: "license"}
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Successor creation writes into the asset's license set, so the
		// asset critical section is taken inside the same transaction.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "asset:"+parent.AssetID.String()).Error; err != nil {
			return err
		}

		var offer models.RenewalOffer
		if err := tx.First(&offer, req.OfferID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperrors.NotFoundError{Resource: "renewal offer"}
			}
			return fmt.Errorf("database error: %w", err)
		}

		if offer.LicenseID != licenseID {
			return &apperrors.StaleOfferError{Message: "offer does not belong to this license"}
		}
		if !offer.Acceptable(now) {
			return &apperrors.StaleOfferError{Message: fmt.Sprintf("offer is %s", offer.EffectiveStatus(now))}
		}

		offer.Status = models.OfferStatusAccepted
		offer.AcceptedAt = &now

		successor = buildSuccessorLicense(&parent, &offer)

		existing, err := s.conflictService.LoadBindingLicenses(tx, parent.AssetID)
		if err != nil {
			return err
		}
		result := CheckConflicts(successor, existing, nil, now)
		if result.HasConflicts {
			return &apperrors.ConflictError{Result: result}
		}

		if err := tx.Create(successor).Error; err != nil {
			return fmt.Errorf("failed to create successor license: %w", err)
		}

		offer.SuccessorLicenseID = &successor.ID
		if err := tx.Save(&offer).Error; err != nil {
			return fmt.Errorf("failed to mark offer accepted: %w", err)
		}

		accepted = &offer
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.sendOfferNotification(accepted, "renewal_offer_accepted")
	go s.initiateRenewalPayment(successor, accepted)

	return successor, nil
}

// RejectOffer is the explicit counterpart to acceptance; terminal.
func (s *RenewalService) RejectOffer(licenseID, offerID uuid.UUID) (*models.RenewalOffer, error) {
	now := time.Now().UTC()
	var rejected *models.RenewalOffer

	err := database.WithLicenseLock(s.db, licenseID, func(tx *gorm.DB) error {
		var offer models.RenewalOffer
		if err := tx.First(&offer, offerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperrors.NotFoundError{Resource: "renewal offer"}
			}
			return fmt.Errorf("database error: %w", err)
		}

		if offer.LicenseID != licenseID {
			return &apperrors.StaleOfferError{Message: "offer does not belong to this license"}
		}
		if !offer.Acceptable(now) {
			return &apperrors.StaleOfferError{Message: fmt.Sprintf("offer is %s", offer.EffectiveStatus(now))}
		}

		offer.Status = models.OfferStatusRejected
		offer.RejectedAt = &now
		if err := tx.Save(&offer).Error; err != nil {
			return fmt.Errorf("failed to mark offer rejected: %w", err)
		}

		rejected = &offer
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rejected, nil
}

// ReconcileExpiredOffers persists the lazily computed expirations. Reads were
// already presenting these offers as EXPIRED; this only writes it back.
func (s *RenewalService) ReconcileExpiredOffers(now time.Time) (int64, error) {
	result := s.db.Model(&models.RenewalOffer{}).
		Where("status = ? AND expires_at <= ?", models.OfferStatusActive, now.UTC()).
		Update("status", models.OfferStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reconcile expired offers: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// buildSuccessorLicense derives the renewal license from its parent and the
// accepted offer: terms from the priced output, start the day after the
// parent's end date, duration from the offer's suggestion. The successor
// starts its own approval cycle in PENDING_APPROVAL, unsigned.
func buildSuccessorLicense(parent *models.License, offer *models.RenewalOffer) *models.License {
	start := models.DayAfter(parent.EndDate)
	parentID := parent.ID
	offerID := offer.ID

	return &models.License{
		AssetID:              parent.AssetID,
		BrandID:              parent.BrandID,
		LicenseType:          parent.LicenseType,
		Status:               models.LicenseStatusPendingApproval,
		StartDate:            start,
		EndDate:              start.AddDate(0, 0, offer.Pricing.SuggestedDurationDays-1),
		FeeCents:             offer.Pricing.NewFeeCents,
		RevShareBps:          offer.Pricing.NewRevShareBps,
		Scope:                parent.Scope,
		Territories:          parent.Territories,
		ExclusivityCategory:  parent.ExclusivityCategory,
		CompetitorExclusions: parent.CompetitorExclusions,
		AutoRenew:            parent.AutoRenew,
		ParentLicenseID:      &parentID,
		RenewalOfferID:       &offerID,
	}
}

func (s *RenewalService) gatherEligibilityInputs(tx *gorm.DB, license *models.License) (EligibilityInputs, error) {
	priorRenewals, err := s.licenseService.CountPriorRenewals(license)
	if err != nil {
		return EligibilityInputs{}, err
	}

	var openDisputes int64
	err = tx.Model(&models.Dispute{}).
		Where("license_id = ? AND status = ?", license.ID, models.DisputeStatusOpen).
		Count(&openDisputes).Error
	if err != nil {
		return EligibilityInputs{}, fmt.Errorf("failed to check disputes: %w", err)
	}

	outstanding, err := s.paymentService.HasOutstandingBalance(tx, license.BrandID)
	if err != nil {
		return EligibilityInputs{}, err
	}

	return EligibilityInputs{
		PriorRenewals:         priorRenewals,
		HasUnresolvedDispute:  openDisputes > 0,
		HasOutstandingBalance: outstanding,
		ROI:                   s.roiSignal(tx, license),
	}, nil
}

func (s *RenewalService) gatherSignals(tx *gorm.DB, license *models.License, inputs EligibilityInputs) (PricingSignals, error) {
	median, err := s.analyticsService.MarketComparable(tx, license)
	if err != nil {
		return PricingSignals{}, err
	}

	return PricingSignals{
		UsageIntensity:       s.usageIntensity(tx, license),
		ROI:                  inputs.ROI,
		MarketMedianFeeCents: median,
	}, nil
}

// roiSignal reads the collaborator-supplied ROI metric from the asset's
// metadata. Absent a reported figure, break-even is assumed.
func (s *RenewalService) roiSignal(tx *gorm.DB, license *models.License) float64 {
	var asset models.Asset
	if err := tx.First(&asset, license.AssetID).Error; err != nil {
		return 1.0
	}
	if v, ok := asset.Metadata["roi"].(float64); ok {
		return v
	}
	return 1.0
}

// usageIntensity approximates consumption from settled revenue-share
// transactions relative to the license fee.
func (s *RenewalService) usageIntensity(tx *gorm.DB, license *models.License) float64 {
	if license.FeeCents <= 0 {
		return 1.0
	}

	var settled int64
	err := tx.Model(&models.Transaction{}).
		Where("license_id = ? AND status = ?", license.ID, models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&settled).Error
	if err != nil || settled <= 0 {
		return 1.0
	}

	return float64(settled) / float64(license.FeeCents)
}

// Notification methods

func (s *RenewalService) sendOfferNotification(offer *models.RenewalOffer, event string) {
	if s.notificationService != nil {
		s.notificationService.SendRenewalOfferNotification(offer, event)
	}
}

func (s *RenewalService) initiateRenewalPayment(successor *models.License, offer *models.RenewalOffer) {
	if s.paymentService == nil || successor.FeeCents <= 0 {
		return
	}
	if err := s.paymentService.CreateRenewalFeeIntent(successor, offer); err != nil {
		s.notificationService.NotifyPaymentFailure(successor, err)
	}
}
