// internal/services/license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/database"
	"github.com/brandgrid/licensing-backend/internal/models"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

type LicenseService struct {
	db                  *gorm.DB
	conflictService     *ConflictService
	notificationService *NotificationService
}

type ScopeRequest struct {
	Media       models.MediaScope       `json:"media"`
	Placement   models.PlacementScope   `json:"placement"`
	Geographic  GeographicRequest       `json:"geographic"`
	Exclusivity ExclusivityRequest      `json:"exclusivity"`
	Cutdowns    models.CutdownScope     `json:"cutdowns"`
	Attribution models.AttributionScope `json:"attribution"`
}

type GeographicRequest struct {
	Territories []string `json:"territories" validate:"dive,territory"`
}

type ExclusivityRequest struct {
	Category    string   `json:"category,omitempty"`
	Competitors []string `json:"competitors,omitempty" validate:"dive,uuid4"`
}

type CreateLicenseRequest struct {
	AssetID     uuid.UUID          `json:"asset_id" validate:"required"`
	BrandID     uuid.UUID          `json:"brand_id" validate:"required"`
	LicenseType models.LicenseType `json:"license_type" validate:"required"`
	StartDate   time.Time          `json:"start_date" validate:"required"`
	EndDate     time.Time          `json:"end_date" validate:"required"`
	FeeCents    int64              `json:"fee_cents" validate:"min=0"`
	RevShareBps int                `json:"rev_share_bps" validate:"min=0,max=10000"`
	AutoRenew   bool               `json:"auto_renew"`
	Scope       ScopeRequest       `json:"scope"`
}

type UpdateLicenseRequest struct {
	LicenseType *models.LicenseType `json:"license_type,omitempty"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty"`
	FeeCents    *int64              `json:"fee_cents,omitempty" validate:"omitempty,min=0"`
	RevShareBps *int                `json:"rev_share_bps,omitempty" validate:"omitempty,min=0,max=10000"`
	AutoRenew   *bool               `json:"auto_renew,omitempty"`
	Scope       *ScopeRequest       `json:"scope,omitempty"`
}

type TerminateLicenseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type LicenseSearchParams struct {
	utils.PaginationParams
	AssetID     *uuid.UUID            `json:"asset_id,omitempty"`
	BrandID     *uuid.UUID            `json:"brand_id,omitempty"`
	Status      *models.LicenseStatus `json:"status,omitempty"`
	LicenseType *models.LicenseType   `json:"license_type,omitempty"`
}

func NewLicenseService(db *gorm.DB, conflictService *ConflictService, notificationService *NotificationService) *LicenseService {
	return &LicenseService{
		db:                  db,
		conflictService:     conflictService,
		notificationService: notificationService,
	}
}

func buildLicense(req *CreateLicenseRequest) *models.License {
	return &models.License{
		AssetID:     req.AssetID,
		BrandID:     req.BrandID,
		LicenseType: req.LicenseType,
		Status:      models.LicenseStatusDraft,
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		FeeCents:    req.FeeCents,
		RevShareBps: req.RevShareBps,
		AutoRenew:   req.AutoRenew,
		Scope: models.Scope{
			Media:       req.Scope.Media,
			Placement:   req.Scope.Placement,
			Cutdowns:    req.Scope.Cutdowns,
			Attribution: req.Scope.Attribution,
		},
		Territories:          req.Scope.Geographic.Territories,
		ExclusivityCategory:  req.Scope.Exclusivity.Category,
		CompetitorExclusions: req.Scope.Exclusivity.Competitors,
	}
}

// CreateLicense validates a candidate, conflict-checks it against the asset's
// existing grants inside the per-asset critical section, and persists it as a
// DRAFT. A conflicting candidate is rejected with the full conflict payload.
func (s *LicenseService) CreateLicense(req *CreateLicenseRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("", err.Error())
	}

	license := buildLicense(req)
	if err := ValidateDraft(license); err != nil {
		return nil, err
	}

	var asset models.Asset
	if err := s.db.First(&asset, req.AssetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "asset"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if asset.Status != models.AssetStatusActive {
		return nil, apperrors.NewValidation("asset_id", "asset is not open for licensing")
	}

	now := time.Now().UTC()
	err := database.WithAssetLock(s.db, req.AssetID, func(tx *gorm.DB) error {
		existing, err := s.conflictService.LoadBindingLicenses(tx, req.AssetID)
		if err != nil {
			return err
		}

		result := CheckConflicts(license, existing, nil, now)
		if result.HasConflicts {
			return &apperrors.ConflictError{Result: result}
		}

		return tx.Create(license).Error
	})
	if err != nil {
		var conflictErr *apperrors.ConflictError
		if errors.As(err, &conflictErr) {
			go s.sendConflictNotification(license, conflictErr.Result)
		}
		return nil, err
	}

	return license, nil
}

// PreviewConflicts is the dry-run check used by UI previews. It takes no lock
// and writes nothing, so repeated calls with unchanged state return identical
// results.
func (s *LicenseService) PreviewConflicts(req *CreateLicenseRequest, excludeLicenseID *uuid.UUID) (models.ConflictResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return models.ConflictResult{}, apperrors.NewValidation("", err.Error())
	}

	candidate := buildLicense(req)
	return s.conflictService.CheckForAsset(candidate, excludeLicenseID, time.Now().UTC())
}

// UpdateLicense modifies a license and re-checks conflicts with the license
// itself excluded. Once ACTIVE, only the administratively gated fields may
// change: end-date extension and auto-renew.
func (s *LicenseService) UpdateLicense(id uuid.UUID, req *UpdateLicenseRequest, isAdmin bool) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("", err.Error())
	}

	var license models.License
	if err := s.db.First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "license"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	now := time.Now().UTC()
	switch license.EffectiveStatus(now) {
	case models.LicenseStatusDraft, models.LicenseStatusPendingApproval:
		applyDraftUpdates(&license, req)
	case models.LicenseStatusActive:
		if !isAdmin {
			return nil, apperrors.NewValidation("", "active licenses may only be modified by an administrator")
		}
		if req.LicenseType != nil || req.StartDate != nil || req.FeeCents != nil || req.RevShareBps != nil || req.Scope != nil {
			return nil, apperrors.NewValidation("", "active licenses accept only end-date extension and auto-renew changes")
		}
		if req.EndDate != nil {
			if !req.EndDate.After(license.EndDate) {
				return nil, apperrors.NewValidation("end_date", "end date may only be extended")
			}
			license.EndDate = req.EndDate.UTC()
		}
		if req.AutoRenew != nil {
			license.AutoRenew = *req.AutoRenew
		}
	default:
		return nil, apperrors.NewValidation("status", fmt.Sprintf("license in status %s cannot be modified", license.EffectiveStatus(now)))
	}

	if err := ValidateDraft(&license); err != nil {
		return nil, err
	}

	err := database.WithAssetLock(s.db, license.AssetID, func(tx *gorm.DB) error {
		existing, err := s.conflictService.LoadBindingLicenses(tx, license.AssetID)
		if err != nil {
			return err
		}

		excludeID := license.ID
		result := CheckConflicts(&license, existing, &excludeID, now)
		if result.HasConflicts {
			return &apperrors.ConflictError{Result: result}
		}

		return tx.Save(&license).Error
	})
	if err != nil {
		var conflictErr *apperrors.ConflictError
		if errors.As(err, &conflictErr) {
			go s.sendConflictNotification(&license, conflictErr.Result)
		}
		return nil, err
	}

	return &license, nil
}

func applyDraftUpdates(license *models.License, req *UpdateLicenseRequest) {
	if req.LicenseType != nil {
		license.LicenseType = *req.LicenseType
	}
	if req.StartDate != nil {
		license.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		license.EndDate = req.EndDate.UTC()
	}
	if req.FeeCents != nil {
		license.FeeCents = *req.FeeCents
	}
	if req.RevShareBps != nil {
		license.RevShareBps = *req.RevShareBps
	}
	if req.AutoRenew != nil {
		license.AutoRenew = *req.AutoRenew
	}
	if req.Scope != nil {
		license.Scope = models.Scope{
			Media:       req.Scope.Media,
			Placement:   req.Scope.Placement,
			Cutdowns:    req.Scope.Cutdowns,
			Attribution: req.Scope.Attribution,
		}
		license.Territories = req.Scope.Geographic.Territories
		license.ExclusivityCategory = req.Scope.Exclusivity.Category
		license.CompetitorExclusions = req.Scope.Exclusivity.Competitors
	}
}

// SubmitLicense moves a draft into counter-party review.
func (s *LicenseService) SubmitLicense(id uuid.UUID) (*models.License, error) {
	var license models.License
	if err := s.db.First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "license"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if license.Status != models.LicenseStatusDraft {
		return nil, apperrors.NewValidation("status", "only draft licenses can be submitted")
	}

	license.Status = models.LicenseStatusPendingApproval
	if err := s.db.Save(&license).Error; err != nil {
		return nil, fmt.Errorf("failed to submit license: %w", err)
	}

	return &license, nil
}

// SignLicense records a counter-party signature. A fully signed license in
// PENDING_APPROVAL becomes ACTIVE; a license can never activate unsigned.
func (s *LicenseService) SignLicense(id uuid.UUID, role models.UserRole) (*models.License, error) {
	var license models.License
	if err := s.db.First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "license"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if license.Status != models.LicenseStatusPendingApproval {
		return nil, apperrors.NewValidation("status", "only licenses pending approval can be signed")
	}

	now := time.Now().UTC()
	switch role {
	case models.UserRoleLicensor, models.UserRoleAdmin:
		license.SignatureState.LicensorSignedAt = &now
	case models.UserRoleBrand:
		license.SignatureState.BrandSignedAt = &now
	default:
		return nil, apperrors.NewValidation("role", "unknown signing party")
	}

	if license.SignatureState.FullySigned() {
		license.Status = models.LicenseStatusActive
	}

	if err := s.db.Save(&license).Error; err != nil {
		return nil, fmt.Errorf("failed to record signature: %w", err)
	}

	if license.Status == models.LicenseStatusActive {
		go s.sendActivationNotification(&license)
	}

	return &license, nil
}

func (s *LicenseService) TerminateLicense(id uuid.UUID, adminID uuid.UUID, req *TerminateLicenseRequest) (*models.License, error) {
	return s.adminTransition(id, adminID, req.Reason, models.LicenseStatusTerminated,
		[]models.LicenseStatus{models.LicenseStatusActive, models.LicenseStatusSuspended, models.LicenseStatusPendingApproval})
}

func (s *LicenseService) SuspendLicense(id uuid.UUID, adminID uuid.UUID, req *TerminateLicenseRequest) (*models.License, error) {
	return s.adminTransition(id, adminID, req.Reason, models.LicenseStatusSuspended,
		[]models.LicenseStatus{models.LicenseStatusActive})
}

func (s *LicenseService) ResumeLicense(id uuid.UUID, adminID uuid.UUID) (*models.License, error) {
	return s.adminTransition(id, adminID, "", models.LicenseStatusActive,
		[]models.LicenseStatus{models.LicenseStatusSuspended})
}

func (s *LicenseService) adminTransition(id, adminID uuid.UUID, reason string, target models.LicenseStatus, from []models.LicenseStatus) (*models.License, error) {
	var license models.License
	if err := s.db.First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "license"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	now := time.Now().UTC()
	current := license.EffectiveStatus(now)
	allowed := false
	for _, status := range from {
		if current == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.NewValidation("status", fmt.Sprintf("cannot transition license from %s to %s", current, target))
	}

	license.Status = target
	if target == models.LicenseStatusTerminated {
		license.TerminatedAt = &now
		license.TerminationReason = reason
	}

	if err := s.db.Save(&license).Error; err != nil {
		return nil, fmt.Errorf("failed to update license status: %w", err)
	}

	go s.sendStatusNotification(&license, adminID)

	return &license, nil
}

func (s *LicenseService) GetLicense(id uuid.UUID) (*models.License, error) {
	var license models.License
	if err := s.db.Preload("Asset").Preload("Brand").First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "license"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Present lazily: lapsed ACTIVE licenses read as EXPIRED.
	license.Status = license.EffectiveStatus(time.Now().UTC())
	return &license, nil
}

func (s *LicenseService) SearchLicenses(params LicenseSearchParams) ([]models.License, int64, error) {
	query := s.db.Model(&models.License{}).Preload("Asset").Preload("Brand")

	if params.AssetID != nil {
		query = query.Where("asset_id = ?", *params.AssetID)
	}
	if params.BrandID != nil {
		query = query.Where("brand_id = ?", *params.BrandID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.LicenseType != nil {
		query = query.Where("license_type = ?", *params.LicenseType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count licenses: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "start_date", "end_date", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var licenses []models.License
	if err := query.Find(&licenses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch licenses: %w", err)
	}

	now := time.Now().UTC()
	for i := range licenses {
		licenses[i].Status = licenses[i].EffectiveStatus(now)
	}

	return licenses, total, nil
}

// GetRenewalChain walks parent references back to the root grant, then forward
// through successors. The chain is owned by persistence; this only traverses
// id lookups.
func (s *LicenseService) GetRenewalChain(id uuid.UUID) ([]models.License, error) {
	var license models.License
	if err := s.db.First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "license"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	root := license
	for root.ParentLicenseID != nil {
		var parent models.License
		if err := s.db.First(&parent, *root.ParentLicenseID).Error; err != nil {
			return nil, fmt.Errorf("failed to traverse renewal chain: %w", err)
		}
		root = parent
	}

	chain := []models.License{root}
	current := root.ID
	for {
		var successor models.License
		err := s.db.Where("parent_license_id = ?", current).First(&successor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to traverse renewal chain: %w", err)
		}
		chain = append(chain, successor)
		current = successor.ID
	}

	now := time.Now().UTC()
	for i := range chain {
		chain[i].Status = chain[i].EffectiveStatus(now)
	}

	return chain, nil
}

// CountPriorRenewals returns how many ancestors a license has in its chain.
func (s *LicenseService) CountPriorRenewals(license *models.License) (int, error) {
	count := 0
	current := license
	for current.ParentLicenseID != nil {
		var parent models.License
		if err := s.db.First(&parent, *current.ParentLicenseID).Error; err != nil {
			return 0, fmt.Errorf("failed to traverse renewal chain: %w", err)
		}
		count++
		current = &parent
	}
	return count, nil
}

// ExpireLapsedLicenses persists what lazy reads already present: ACTIVE
// licenses whose end date has passed become EXPIRED. Reconciliation only;
// correctness never depends on when this runs.
func (s *LicenseService) ExpireLapsedLicenses(now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-24 * time.Hour)
	result := s.db.Model(&models.License{}).
		Where("status = ? AND end_date <= ?", models.LicenseStatusActive, cutoff).
		Update("status", models.LicenseStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire lapsed licenses: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Notification methods

func (s *LicenseService) sendConflictNotification(candidate *models.License, result models.ConflictResult) {
	if s.notificationService != nil {
		s.notificationService.SendConflictDetectedNotification(candidate, result)
	}
}

func (s *LicenseService) sendActivationNotification(license *models.License) {
	if s.notificationService != nil {
		s.notificationService.SendLicenseActivatedNotification(license)
	}
}

func (s *LicenseService) sendStatusNotification(license *models.License, adminID uuid.UUID) {
	if s.notificationService != nil {
		s.notificationService.SendLicenseStatusNotification(license, adminID)
	}
}
