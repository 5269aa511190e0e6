// internal/models/scope_test.go
package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	aStart := date(2025, 1, 1)
	aEnd := EndBoundary(date(2025, 6, 30))

	// Fully inside
	assert.True(t, Overlaps(aStart, aEnd, date(2025, 3, 1), EndBoundary(date(2025, 3, 31))))

	// Disjoint after
	assert.False(t, Overlaps(aStart, aEnd, date(2025, 7, 1), EndBoundary(date(2025, 12, 31))))

	// Half-open: a range starting the day after the inclusive end day does not
	// overlap, but one starting on the end day itself does.
	assert.True(t, Overlaps(aStart, aEnd, date(2025, 6, 30), EndBoundary(date(2025, 7, 31))))
	assert.False(t, Overlaps(aStart, aEnd, date(2025, 7, 1), EndBoundary(date(2025, 7, 31))))
}

func TestEndBoundary(t *testing.T) {
	// Inclusive end-of-day becomes midnight of the next day.
	assert.Equal(t, date(2026, 1, 1), EndBoundary(date(2025, 12, 31)))

	// Intraday timestamps truncate to the same boundary.
	assert.Equal(t, date(2026, 1, 1), EndBoundary(time.Date(2025, 12, 31, 15, 4, 5, 0, time.UTC)))
}

func TestTerritoriesIntersect(t *testing.T) {
	// GLOBAL intersects everything, including GLOBAL itself.
	assert.Equal(t, []string{TerritoryGlobal}, TerritoriesIntersect([]string{"GLOBAL"}, []string{"GLOBAL"}))
	assert.Equal(t, []string{"DE", "US"}, TerritoriesIntersect([]string{"GLOBAL"}, []string{"US", "DE"}))
	assert.Equal(t, []string{"JP"}, TerritoriesIntersect([]string{"JP"}, []string{"global"}))

	// Concrete intersection is case-insensitive, deduplicated and sorted.
	assert.Equal(t, []string{"FR", "US"}, TerritoriesIntersect([]string{"us", "FR", "GB"}, []string{"FR", "US", "us", "JP"}))

	// Disjoint sets intersect to nothing.
	assert.Empty(t, TerritoriesIntersect([]string{"US"}, []string{"JP", "KR"}))
}

func TestCompetitorBlocked(t *testing.T) {
	brandA := uuid.New()
	brandB := uuid.New()

	candidate := &License{
		BrandID:             brandA,
		ExclusivityCategory: "Sportswear",
	}
	existing := &License{
		BrandID:              brandB,
		ExclusivityCategory:  "sportswear",
		CompetitorExclusions: []string{brandA.String()},
	}

	// Either side listing the other blocks, category matched case-insensitively.
	assert.True(t, CompetitorBlocked(candidate, existing))
	assert.True(t, CompetitorBlocked(existing, candidate))

	// Different categories never block.
	existing.ExclusivityCategory = "beverages"
	assert.False(t, CompetitorBlocked(candidate, existing))

	// Empty category never blocks even with a listed competitor.
	existing.ExclusivityCategory = ""
	assert.False(t, CompetitorBlocked(candidate, existing))
}

func TestLicenseEffectiveStatus(t *testing.T) {
	license := &License{
		Status:    LicenseStatusActive,
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 12, 31),
	}

	// Active through the inclusive end day.
	assert.Equal(t, LicenseStatusActive, license.EffectiveStatus(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)))

	// Expired from the next midnight on, without any write.
	assert.Equal(t, LicenseStatusExpired, license.EffectiveStatus(date(2026, 1, 1)))

	// Non-active statuses are never aged.
	license.Status = LicenseStatusSuspended
	assert.Equal(t, LicenseStatusSuspended, license.EffectiveStatus(date(2027, 1, 1)))
}

func TestLicenseBinding(t *testing.T) {
	now := date(2025, 6, 1)

	for status, binding := range map[LicenseStatus]bool{
		LicenseStatusActive:          true,
		LicenseStatusPendingApproval: true,
		LicenseStatusSuspended:       true,
		LicenseStatusDraft:           false,
		LicenseStatusExpired:         false,
		LicenseStatusTerminated:      false,
	} {
		license := &License{
			Status:    status,
			StartDate: date(2025, 1, 1),
			EndDate:   date(2025, 12, 31),
		}
		assert.Equal(t, binding, license.Binding(now), "status %s", status)
	}

	// A lapsed ACTIVE license stops binding.
	lapsed := &License{
		Status:    LicenseStatusActive,
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 12, 31),
	}
	assert.False(t, lapsed.Binding(now))
}

func TestLicenseDurationDays(t *testing.T) {
	license := &License{
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 12, 31),
	}
	assert.Equal(t, 365, license.DurationDays())

	oneDay := &License{
		StartDate: date(2025, 3, 10),
		EndDate:   date(2025, 3, 10),
	}
	assert.Equal(t, 1, oneDay.DurationDays())
}

func TestLicenseWithinGracePeriod(t *testing.T) {
	license := &License{
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 12, 31),
	}

	assert.True(t, license.WithinGracePeriod(date(2026, 1, 15), 30))
	assert.True(t, license.WithinGracePeriod(date(2026, 1, 30), 30))
	assert.False(t, license.WithinGracePeriod(date(2026, 1, 31), 30))
}

func TestSignatureStateFullySigned(t *testing.T) {
	now := time.Now().UTC()

	var state SignatureState
	assert.False(t, state.FullySigned())

	state.LicensorSignedAt = &now
	assert.False(t, state.FullySigned())

	state.BrandSignedAt = &now
	assert.True(t, state.FullySigned())
}

func TestOfferEffectiveStatusLazyExpiry(t *testing.T) {
	created := date(2025, 5, 1)
	offer := &RenewalOffer{
		Status:    OfferStatusActive,
		ExpiresAt: created.AddDate(0, 0, 7),
	}

	// Still active just inside the window.
	assert.Equal(t, OfferStatusActive, offer.EffectiveStatus(created.AddDate(0, 0, 7).Add(-time.Second)))
	assert.True(t, offer.Acceptable(created.AddDate(0, 0, 6)))

	// Reads past expires_at present EXPIRED even though nothing was written.
	assert.Equal(t, OfferStatusExpired, offer.EffectiveStatus(created.AddDate(0, 0, 7)))
	assert.False(t, offer.Acceptable(created.AddDate(0, 0, 8)))

	// Terminal statuses are not aged.
	offer.Status = OfferStatusAccepted
	assert.Equal(t, OfferStatusAccepted, offer.EffectiveStatus(created.AddDate(0, 1, 0)))
}
