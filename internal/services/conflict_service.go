// internal/services/conflict_service.go
package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/models"
)

// bindingStatuses are the stored statuses that still constrain new grants.
// EXPIRED and TERMINATED licenses never conflict.
var bindingStatuses = []models.LicenseStatus{
	models.LicenseStatusActive,
	models.LicenseStatusPendingApproval,
	models.LicenseStatusSuspended,
}

type ConflictService struct {
	db *gorm.DB
}

func NewConflictService(db *gorm.DB) *ConflictService {
	return &ConflictService{
		db: db,
	}
}

// ValidateDraft rejects malformed candidates before conflict detection runs,
// so the detector itself never has to error on well-formed input.
func ValidateDraft(l *models.License) error {
	if !l.LicenseType.Valid() {
		return apperrors.NewValidation("license_type", fmt.Sprintf("unknown license type %q", l.LicenseType))
	}
	if !l.StartDate.Before(l.EndDate) {
		return apperrors.NewValidation("start_date", "start date must be before end date")
	}
	if l.FeeCents < 0 {
		return apperrors.NewValidation("fee_cents", "fee must be non-negative")
	}
	if l.RevShareBps < 0 || l.RevShareBps > models.MaxRevShareBps {
		return apperrors.NewValidation("rev_share_bps", fmt.Sprintf("revenue share must be between 0 and %d basis points", models.MaxRevShareBps))
	}
	if l.LicenseType == models.LicenseTypeExclusiveTerritory && len(l.Territories) == 0 {
		return apperrors.NewValidation("territories", "territory-exclusive licenses require at least one territory")
	}
	return nil
}

// CheckConflicts evaluates a candidate against the existing license set for
// its asset. Pure: no I/O, no locking; callers run it inside the per-asset
// critical section when the result gates a write.
//
// The caller excludes the license being modified via excludeID. Results are
// ordered ascending by the conflicting license's creation time (id as
// tiebreak) so repeated calls over the same inputs are byte-identical.
func CheckConflicts(candidate *models.License, existing []models.License, excludeID *uuid.UUID, now time.Time) models.ConflictResult {
	ordered := make([]models.License, len(existing))
	copy(ordered, existing)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	candStart := candidate.StartDate
	candEnd := models.EndBoundary(candidate.EndDate)

	var conflicts []models.Conflict
	for i := range ordered {
		other := &ordered[i]

		if other.AssetID != candidate.AssetID {
			continue
		}
		if excludeID != nil && other.ID == *excludeID {
			continue
		}
		if !other.Binding(now) {
			continue
		}
		if !models.Overlaps(candStart, candEnd, other.StartDate, models.EndBoundary(other.EndDate)) {
			continue
		}

		switch {
		case candidate.LicenseType == models.LicenseTypeExclusive || other.LicenseType == models.LicenseTypeExclusive:
			// An exclusive grant forbids any temporally overlapping grant on
			// the same asset, regardless of scope.
			conflicts = append(conflicts, models.Conflict{
				ConflictingLicenseID: other.ID,
				Reason:               models.ConflictReasonExclusiveOverlap,
				Details: fmt.Sprintf("exclusive grant to brand %s overlaps %s to %s",
					other.BrandID, other.StartDate.Format("2006-01-02"), other.EndDate.Format("2006-01-02")),
			})

		case candidate.LicenseType == models.LicenseTypeExclusiveTerritory && other.LicenseType == models.LicenseTypeExclusiveTerritory:
			if shared := models.TerritoriesIntersect(candidate.Territories, other.Territories); len(shared) > 0 {
				conflicts = append(conflicts, models.Conflict{
					ConflictingLicenseID: other.ID,
					Reason:               models.ConflictReasonTerritoryOverlap,
					Details:              fmt.Sprintf("territory-exclusive grants share territories %v", shared),
				})
			} else if models.CompetitorBlocked(candidate, other) {
				conflicts = append(conflicts, competitorConflict(other))
			}

		case models.CompetitorBlocked(candidate, other):
			conflicts = append(conflicts, competitorConflict(other))

			// Plain date overlap without exclusivity, territory exclusivity or
			// competitor rules is not blocking: non-exclusive grants coexist.
			// date_overlap stays reserved and is never synthesized here.
		}
	}

	return models.ConflictResult{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
	}
}

func competitorConflict(other *models.License) models.Conflict {
	return models.Conflict{
		ConflictingLicenseID: other.ID,
		Reason:               models.ConflictReasonCompetitorBlocked,
		Details:              fmt.Sprintf("brand %s is an excluded competitor under category %q", other.BrandID, other.ExclusivityCategory),
	}
}

// LoadBindingLicenses fetches the licenses that can still conflict for an
// asset. Run on the supplied tx so reads inside a critical section see a
// consistent snapshot.
func (s *ConflictService) LoadBindingLicenses(tx *gorm.DB, assetID uuid.UUID) ([]models.License, error) {
	var licenses []models.License
	err := tx.Where("asset_id = ? AND status IN ?", assetID, bindingStatuses).
		Order("created_at ASC, id ASC").
		Find(&licenses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load licenses for asset: %w", err)
	}
	return licenses, nil
}

// CheckForAsset is the lock-free preview path used by dry-run checks. Writers
// must not rely on it; they re-check inside the asset critical section.
func (s *ConflictService) CheckForAsset(candidate *models.License, excludeID *uuid.UUID, now time.Time) (models.ConflictResult, error) {
	if err := ValidateDraft(candidate); err != nil {
		return models.ConflictResult{}, err
	}

	existing, err := s.LoadBindingLicenses(s.db, candidate.AssetID)
	if err != nil {
		return models.ConflictResult{}, err
	}

	return CheckConflicts(candidate, existing, excludeID, now), nil
}
