// internal/services/conflict_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func makeLicense(assetID, brandID uuid.UUID, lType models.LicenseType, status models.LicenseStatus, start, end time.Time) models.License {
	l := models.License{
		AssetID:     assetID,
		BrandID:     brandID,
		LicenseType: lType,
		Status:      status,
		StartDate:   start,
		EndDate:     end,
	}
	l.ID = uuid.New()
	l.CreatedAt = start
	return l
}

func TestValidateDraft(t *testing.T) {
	assetID := uuid.New()
	brandID := uuid.New()

	valid := makeLicense(assetID, brandID, models.LicenseTypeExclusive, models.LicenseStatusDraft, day(2025, 1, 1), day(2025, 12, 31))
	assert.NoError(t, ValidateDraft(&valid))

	inverted := valid
	inverted.StartDate, inverted.EndDate = inverted.EndDate, inverted.StartDate
	assert.True(t, apperrors.IsValidation(ValidateDraft(&inverted)))

	// A zero-length window is rejected before detection runs.
	zero := valid
	zero.EndDate = zero.StartDate
	assert.True(t, apperrors.IsValidation(ValidateDraft(&zero)))

	badType := valid
	badType.LicenseType = "sole"
	assert.True(t, apperrors.IsValidation(ValidateDraft(&badType)))

	badBps := valid
	badBps.RevShareBps = 10001
	assert.True(t, apperrors.IsValidation(ValidateDraft(&badBps)))

	negFee := valid
	negFee.FeeCents = -1
	assert.True(t, apperrors.IsValidation(ValidateDraft(&negFee)))

	noTerritories := valid
	noTerritories.LicenseType = models.LicenseTypeExclusiveTerritory
	assert.True(t, apperrors.IsValidation(ValidateDraft(&noTerritories)))
}

func TestCheckConflictsExclusiveOverlap(t *testing.T) {
	assetID := uuid.New()
	b1 := uuid.New()
	b2 := uuid.New()
	now := day(2025, 3, 1)

	// B1 holds an ACTIVE EXCLUSIVE license for all of 2025.
	existing := []models.License{
		makeLicense(assetID, b1, models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31)),
	}

	// B2's candidate EXCLUSIVE June license must conflict.
	candidate := makeLicense(assetID, b2, models.LicenseTypeExclusive, models.LicenseStatusDraft, day(2025, 6, 1), day(2025, 6, 30))

	result := CheckConflicts(&candidate, existing, nil, now)
	assert.True(t, result.HasConflicts)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, existing[0].ID, result.Conflicts[0].ConflictingLicenseID)
	assert.Equal(t, models.ConflictReasonExclusiveOverlap, result.Conflicts[0].Reason)

	// And the check is symmetric: swapping candidate and existing still
	// reports EXCLUSIVE_OVERLAP.
	reversed := CheckConflicts(&existing[0], []models.License{candidate}, nil, now)
	assert.True(t, reversed.HasConflicts)
	assert.Equal(t, models.ConflictReasonExclusiveOverlap, reversed.Conflicts[0].Reason)
}

func TestCheckConflictsExclusiveVsNonExclusive(t *testing.T) {
	assetID := uuid.New()
	now := day(2025, 3, 1)

	existing := []models.License{
		makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31)),
	}

	// An exclusive grant blocks any overlapping grant regardless of the
	// candidate's own mode.
	candidate := makeLicense(assetID, uuid.New(), models.LicenseTypeNonExclusive, models.LicenseStatusDraft, day(2025, 6, 1), day(2025, 6, 30))

	result := CheckConflicts(&candidate, existing, nil, now)
	assert.True(t, result.HasConflicts)
	assert.Equal(t, models.ConflictReasonExclusiveOverlap, result.Conflicts[0].Reason)
}

func TestCheckConflictsDisjointDates(t *testing.T) {
	assetID := uuid.New()
	now := day(2025, 3, 1)

	existing := []models.License{
		makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31)),
	}

	// Disjoint 2026 non-exclusive candidate is clear.
	candidate := makeLicense(assetID, uuid.New(), models.LicenseTypeNonExclusive, models.LicenseStatusDraft, day(2026, 1, 1), day(2026, 6, 30))

	result := CheckConflicts(&candidate, existing, nil, now)
	assert.False(t, result.HasConflicts)
	assert.Empty(t, result.Conflicts)
}

func TestCheckConflictsNonExclusiveCoexist(t *testing.T) {
	assetID := uuid.New()
	now := day(2025, 3, 1)

	// Overlapping non-exclusive grants with no competitor rules coexist; plain
	// date overlap alone is never a conflict.
	existing := []models.License{
		makeLicense(assetID, uuid.New(), models.LicenseTypeNonExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31)),
	}
	candidate := makeLicense(assetID, uuid.New(), models.LicenseTypeNonExclusive, models.LicenseStatusDraft, day(2025, 6, 1), day(2025, 6, 30))

	result := CheckConflicts(&candidate, existing, nil, now)
	assert.False(t, result.HasConflicts)
	for _, c := range result.Conflicts {
		assert.NotEqual(t, models.ConflictReasonDateOverlap, c.Reason)
	}
}

func TestCheckConflictsTerritoryOverlap(t *testing.T) {
	assetID := uuid.New()
	now := day(2025, 3, 1)

	existing := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusiveTerritory, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31))
	existing.Territories = []string{"US", "CA"}

	candidate := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusiveTerritory, models.LicenseStatusDraft, day(2025, 6, 1), day(2025, 6, 30))
	candidate.Territories = []string{"us", "JP"}

	result := CheckConflicts(&candidate, []models.License{existing}, nil, now)
	assert.True(t, result.HasConflicts)
	assert.Equal(t, models.ConflictReasonTerritoryOverlap, result.Conflicts[0].Reason)

	// Disjoint territories clear the pair.
	candidate.Territories = []string{"JP", "KR"}
	result = CheckConflicts(&candidate, []models.License{existing}, nil, now)
	assert.False(t, result.HasConflicts)

	// GLOBAL intersects every concrete territory.
	candidate.Territories = []string{"GLOBAL"}
	result = CheckConflicts(&candidate, []models.License{existing}, nil, now)
	assert.True(t, result.HasConflicts)
	assert.Equal(t, models.ConflictReasonTerritoryOverlap, result.Conflicts[0].Reason)
}

func TestCheckConflictsCompetitorBlocked(t *testing.T) {
	assetID := uuid.New()
	b1 := uuid.New()
	b2 := uuid.New()
	now := day(2025, 3, 1)

	existing := makeLicense(assetID, b1, models.LicenseTypeNonExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31))
	existing.ExclusivityCategory = "sportswear"
	existing.CompetitorExclusions = []string{b2.String()}

	candidate := makeLicense(assetID, b2, models.LicenseTypeNonExclusive, models.LicenseStatusDraft, day(2025, 6, 1), day(2025, 6, 30))
	candidate.ExclusivityCategory = "sportswear"

	result := CheckConflicts(&candidate, []models.License{existing}, nil, now)
	assert.True(t, result.HasConflicts)
	assert.Equal(t, models.ConflictReasonCompetitorBlocked, result.Conflicts[0].Reason)

	// Territory-exclusive pairs with disjoint territories still fall through
	// to the competitor rule.
	existing.LicenseType = models.LicenseTypeExclusiveTerritory
	existing.Territories = []string{"US"}
	candidate.LicenseType = models.LicenseTypeExclusiveTerritory
	candidate.Territories = []string{"JP"}

	result = CheckConflicts(&candidate, []models.License{existing}, nil, now)
	assert.True(t, result.HasConflicts)
	assert.Equal(t, models.ConflictReasonCompetitorBlocked, result.Conflicts[0].Reason)
}

func TestCheckConflictsSkipsNonBinding(t *testing.T) {
	assetID := uuid.New()
	now := day(2025, 3, 1)

	expired := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusExpired, day(2024, 1, 1), day(2024, 12, 31))
	terminated := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusTerminated, day(2025, 1, 1), day(2025, 12, 31))
	draft := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusDraft, day(2025, 1, 1), day(2025, 12, 31))

	// An ACTIVE license whose term already lapsed is not binding either.
	lapsed := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2024, 1, 1), day(2024, 6, 30))

	candidate := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusDraft, day(2024, 1, 1), day(2025, 12, 31))

	result := CheckConflicts(&candidate, []models.License{expired, terminated, draft, lapsed}, nil, now)
	assert.False(t, result.HasConflicts)

	// SUSPENDED and PENDING_APPROVAL still bind.
	suspended := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusSuspended, day(2025, 1, 1), day(2025, 12, 31))
	pending := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusPendingApproval, day(2025, 1, 1), day(2025, 12, 31))

	result = CheckConflicts(&candidate, []models.License{suspended, pending}, nil, now)
	assert.Len(t, result.Conflicts, 2)
}

func TestCheckConflictsIgnoresOtherAssets(t *testing.T) {
	now := day(2025, 3, 1)

	otherAsset := makeLicense(uuid.New(), uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31))
	candidate := makeLicense(uuid.New(), uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusDraft, day(2025, 6, 1), day(2025, 6, 30))

	result := CheckConflicts(&candidate, []models.License{otherAsset}, nil, now)
	assert.False(t, result.HasConflicts)
}

func TestCheckConflictsExcludeID(t *testing.T) {
	assetID := uuid.New()
	now := day(2025, 3, 1)

	stored := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31))

	// Re-checking a modified license against a set containing its own stored
	// row must not self-conflict.
	modified := stored
	modified.EndDate = day(2026, 6, 30)

	excludeID := stored.ID
	result := CheckConflicts(&modified, []models.License{stored}, &excludeID, now)
	assert.False(t, result.HasConflicts)

	result = CheckConflicts(&modified, []models.License{stored}, nil, now)
	assert.True(t, result.HasConflicts)
}

func TestCheckConflictsDeterministicOrder(t *testing.T) {
	assetID := uuid.New()
	now := day(2025, 3, 1)

	oldest := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31))
	oldest.CreatedAt = day(2024, 1, 1)
	middle := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 2, 1), day(2025, 11, 30))
	middle.CreatedAt = day(2024, 6, 1)
	newest := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusActive, day(2025, 3, 1), day(2025, 10, 31))
	newest.CreatedAt = day(2024, 12, 1)

	candidate := makeLicense(assetID, uuid.New(), models.LicenseTypeExclusive, models.LicenseStatusDraft, day(2025, 6, 1), day(2025, 6, 30))

	// Input order must not matter.
	scrambled := []models.License{newest, oldest, middle}
	result := CheckConflicts(&candidate, scrambled, nil, now)

	assert.Len(t, result.Conflicts, 3)
	assert.Equal(t, oldest.ID, result.Conflicts[0].ConflictingLicenseID)
	assert.Equal(t, middle.ID, result.Conflicts[1].ConflictingLicenseID)
	assert.Equal(t, newest.ID, result.Conflicts[2].ConflictingLicenseID)

	// Idempotent: a second call over the same inputs is identical.
	again := CheckConflicts(&candidate, scrambled, nil, now)
	assert.Equal(t, result, again)
}
