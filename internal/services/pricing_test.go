// internal/services/pricing_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/models"
)

func renewalConfig() config.RenewalConfig {
	return config.RenewalConfig{
		GraceDays:           30,
		OfferTTLDays:        7,
		LoyaltyDiscountPct:  5,
		LoyaltyCapPct:       25,
		PerformanceBonusPct: 10,
		ROIThreshold:        1.5,
	}
}

func renewableLicense() *models.License {
	l := makeLicense(uuid.New(), uuid.New(), models.LicenseTypeNonExclusive, models.LicenseStatusActive, day(2025, 1, 1), day(2025, 12, 31))
	l.FeeCents = 100000
	l.RevShareBps = 500
	return &l
}

func TestEvaluateEligibilityAccumulatesReasons(t *testing.T) {
	license := renewableLicense()
	license.Status = models.LicenseStatusTerminated

	result := EvaluateEligibility(license, EligibilityInputs{
		HasUnresolvedDispute:  true,
		HasOutstandingBalance: true,
	}, renewalConfig(), day(2025, 6, 1))

	// Every blocking factor is reported, not just the first.
	assert.False(t, result.Eligible)
	assert.Len(t, result.Reasons, 3)
	assert.Nil(t, result.SuggestedTerms)
}

func TestEvaluateEligibilityGracePeriod(t *testing.T) {
	license := renewableLicense()
	license.Status = models.LicenseStatusExpired

	// 20 days past the end of term: still inside the 30-day grace window.
	result := EvaluateEligibility(license, EligibilityInputs{}, renewalConfig(), day(2026, 1, 20))
	assert.True(t, result.Eligible)

	// 40 days past: too late.
	result = EvaluateEligibility(license, EligibilityInputs{}, renewalConfig(), day(2026, 2, 9))
	assert.False(t, result.Eligible)
	assert.Len(t, result.Reasons, 1)
}

func TestEvaluateEligibilityLazyExpiryCounts(t *testing.T) {
	// A stored-ACTIVE license past its end date is treated as EXPIRED, so the
	// grace window applies even before the reconciliation sweep runs.
	license := renewableLicense()

	result := EvaluateEligibility(license, EligibilityInputs{}, renewalConfig(), day(2026, 1, 10))
	assert.True(t, result.Eligible)

	result = EvaluateEligibility(license, EligibilityInputs{}, renewalConfig(), day(2026, 3, 1))
	assert.False(t, result.Eligible)
}

func TestSuggestedTermsLoyaltyDiscount(t *testing.T) {
	license := renewableLicense()

	// One prior renewal: 5% off the fee, 500 bps off the share (floored at 0).
	result := EvaluateEligibility(license, EligibilityInputs{PriorRenewals: 1}, renewalConfig(), day(2025, 6, 1))
	assert.True(t, result.Eligible)
	assert.Equal(t, int64(95000), result.SuggestedTerms.FeeCents)
	assert.Equal(t, 0, result.SuggestedTerms.RevShareBps)
	assert.Equal(t, 365, result.SuggestedTerms.DurationDays)
}

func TestSuggestedTermsLoyaltyCap(t *testing.T) {
	license := renewableLicense()

	// Ten prior renewals would be 50%; the cap holds it at 25%.
	result := EvaluateEligibility(license, EligibilityInputs{PriorRenewals: 10}, renewalConfig(), day(2025, 6, 1))
	assert.Equal(t, int64(75000), result.SuggestedTerms.FeeCents)
}

func TestSuggestedTermsMultiplicativeComposition(t *testing.T) {
	license := renewableLicense()

	// Two prior renewals (−10%) with a qualifying performance signal (+10%)
	// compose multiplicatively: 0.9 × 1.1 = 0.99, a net −1% — not the 0% naive
	// addition would give.
	result := EvaluateEligibility(license, EligibilityInputs{PriorRenewals: 2, ROI: 2.0}, renewalConfig(), day(2025, 6, 1))
	assert.Equal(t, int64(99000), result.SuggestedTerms.FeeCents)
	assert.NotEqual(t, license.FeeCents, result.SuggestedTerms.FeeCents)

	// Revenue share composes additively in basis points: −1000 + 1000 = 0.
	assert.Equal(t, 500, result.SuggestedTerms.RevShareBps)
}

func TestSuggestedTermsPerformanceThreshold(t *testing.T) {
	license := renewableLicense()

	// ROI at the threshold does not qualify; it must exceed it.
	result := EvaluateEligibility(license, EligibilityInputs{ROI: 1.5}, renewalConfig(), day(2025, 6, 1))
	assert.Equal(t, license.FeeCents, result.SuggestedTerms.FeeCents)

	result = EvaluateEligibility(license, EligibilityInputs{ROI: 1.6}, renewalConfig(), day(2025, 6, 1))
	assert.Equal(t, int64(110000), result.SuggestedTerms.FeeCents)
	assert.Equal(t, 1500, result.SuggestedTerms.RevShareBps)
}

func baseTerms() SuggestedTerms {
	return SuggestedTerms{DurationDays: 365, FeeCents: 100000, RevShareBps: 1000}
}

func TestPriceRenewalFlat(t *testing.T) {
	license := renewableLicense()

	pricing, err := PriceRenewal(license, baseTerms(), models.StrategyFlatRenewal, nil, PricingSignals{})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, pricing.AdjustmentPercent)
	assert.Equal(t, int64(100000), pricing.NewFeeCents)
	assert.Equal(t, 1000, pricing.NewRevShareBps)
	assert.Equal(t, license.FeeCents, pricing.OriginalFeeCents)
	assert.Equal(t, 365, pricing.SuggestedDurationDays)
}

func TestPriceRenewalUsageBased(t *testing.T) {
	license := renewableLicense()

	// Usage at exactly the contracted level prices flat.
	pricing, err := PriceRenewal(license, baseTerms(), models.StrategyUsageBased, nil, PricingSignals{UsageIntensity: 1.0})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, pricing.AdjustmentPercent)

	// Heavy over-use clamps at +50%.
	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyUsageBased, nil, PricingSignals{UsageIntensity: 5.0})
	assert.Equal(t, 50.0, pricing.AdjustmentPercent)
	assert.Equal(t, int64(150000), pricing.NewFeeCents)

	// Idle licenses clamp at −20%.
	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyUsageBased, nil, PricingSignals{UsageIntensity: 0})
	assert.Equal(t, -20.0, pricing.AdjustmentPercent)
	assert.Equal(t, int64(80000), pricing.NewFeeCents)
}

func TestPriceRenewalMarketRate(t *testing.T) {
	license := renewableLicense()

	// Median 10% above the base fee pulls the price up 10%.
	pricing, err := PriceRenewal(license, baseTerms(), models.StrategyMarketRate, nil, PricingSignals{MarketMedianFeeCents: 110000})
	assert.NoError(t, err)
	assert.Equal(t, 10.0, pricing.AdjustmentPercent)

	// A market far above clamps at +20%; far below at −20%.
	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyMarketRate, nil, PricingSignals{MarketMedianFeeCents: 300000})
	assert.Equal(t, 20.0, pricing.AdjustmentPercent)

	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyMarketRate, nil, PricingSignals{MarketMedianFeeCents: 10000})
	assert.Equal(t, -20.0, pricing.AdjustmentPercent)

	// No comparables means no market movement.
	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyMarketRate, nil, PricingSignals{MarketMedianFeeCents: 0})
	assert.Equal(t, 0.0, pricing.AdjustmentPercent)
}

func TestPriceRenewalPerformanceBased(t *testing.T) {
	license := renewableLicense()

	// ROI 2.0 → (2.0 − 1.0) × 20 = +20%.
	pricing, err := PriceRenewal(license, baseTerms(), models.StrategyPerformanceBased, nil, PricingSignals{ROI: 2.0})
	assert.NoError(t, err)
	assert.Equal(t, 20.0, pricing.AdjustmentPercent)

	// Bounds are [−10, +30].
	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyPerformanceBased, nil, PricingSignals{ROI: 4.0})
	assert.Equal(t, 30.0, pricing.AdjustmentPercent)

	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyPerformanceBased, nil, PricingSignals{ROI: 0})
	assert.Equal(t, -10.0, pricing.AdjustmentPercent)
}

func TestPriceRenewalNegotiated(t *testing.T) {
	license := renewableLicense()

	// Without an explicit adjustment the strategy is rejected.
	_, err := PriceRenewal(license, baseTerms(), models.StrategyNegotiated, nil, PricingSignals{})
	assert.True(t, apperrors.IsValidation(err))

	custom := 12.5
	pricing, err := PriceRenewal(license, baseTerms(), models.StrategyNegotiated, &custom, PricingSignals{})
	assert.NoError(t, err)
	assert.Equal(t, 12.5, pricing.AdjustmentPercent)
	assert.Equal(t, int64(112500), pricing.NewFeeCents)
	assert.Equal(t, 2250, pricing.NewRevShareBps)
}

func TestPriceRenewalAutomaticBlend(t *testing.T) {
	license := renewableLicense()

	// usage 0 (flat), market +10, performance +20 → blended (0+10+20)/3 = 10.
	signals := PricingSignals{
		UsageIntensity:       1.0,
		ROI:                  2.0,
		MarketMedianFeeCents: 110000,
	}
	pricing, err := PriceRenewal(license, baseTerms(), models.StrategyAutomatic, nil, signals)
	assert.NoError(t, err)
	assert.InDelta(t, 10.0, pricing.AdjustmentPercent, 1e-9)

	// Each component is clamped before blending: usage +50, market +20,
	// performance +30 → (50+20+30)/3 ≈ 33.33, inside the union bound of +50.
	extreme := PricingSignals{
		UsageIntensity:       10,
		ROI:                  10,
		MarketMedianFeeCents: 1000000,
	}
	pricing, _ = PriceRenewal(license, baseTerms(), models.StrategyAutomatic, nil, extreme)
	assert.InDelta(t, 100.0/3, pricing.AdjustmentPercent, 1e-9)
}

func TestPriceRenewalUnknownStrategy(t *testing.T) {
	license := renewableLicense()

	_, err := PriceRenewal(license, baseTerms(), "dutch_auction", nil, PricingSignals{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestPriceRenewalClampsAbsoluteBounds(t *testing.T) {
	license := renewableLicense()

	// A deep negotiated cut can never push terms below zero.
	custom := -150.0
	base := SuggestedTerms{DurationDays: 30, FeeCents: 1000, RevShareBps: 100}
	pricing, err := PriceRenewal(license, base, models.StrategyNegotiated, &custom, PricingSignals{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), pricing.NewFeeCents)
	assert.Equal(t, 0, pricing.NewRevShareBps)

	// And a large positive adjustment caps the share at 10000 bps.
	custom = 150.0
	base.RevShareBps = 9000
	pricing, _ = PriceRenewal(license, base, models.StrategyNegotiated, &custom, PricingSignals{})
	assert.Equal(t, models.MaxRevShareBps, pricing.NewRevShareBps)
}

func TestBuildSuccessorLicense(t *testing.T) {
	parent := renewableLicense()
	parent.Territories = []string{"US", "CA"}
	parent.ExclusivityCategory = "sportswear"
	parent.AutoRenew = true

	offer := &models.RenewalOffer{
		LicenseID: parent.ID,
		Pricing: models.OfferPricing{
			Strategy:              models.StrategyFlatRenewal,
			OriginalFeeCents:      parent.FeeCents,
			NewFeeCents:           95000,
			OriginalRevShareBps:   parent.RevShareBps,
			NewRevShareBps:        600,
			SuggestedDurationDays: 365,
		},
	}
	offer.ID = uuid.New()

	successor := buildSuccessorLicense(parent, offer)

	// Starts exactly one day after the parent's inclusive end date.
	assert.Equal(t, day(2026, 1, 1), successor.StartDate)
	assert.Equal(t, day(2026, 12, 31), successor.EndDate)
	assert.Equal(t, 365, successor.DurationDays())

	// Linked to its parent and the accepted offer, priced from the offer.
	assert.Equal(t, parent.ID, *successor.ParentLicenseID)
	assert.Equal(t, offer.ID, *successor.RenewalOfferID)
	assert.Equal(t, int64(95000), successor.FeeCents)
	assert.Equal(t, 600, successor.RevShareBps)

	// Starts its own approval cycle unsigned.
	assert.Equal(t, models.LicenseStatusPendingApproval, successor.Status)
	assert.False(t, successor.SignatureState.FullySigned())

	// Scope carries over.
	assert.Equal(t, parent.LicenseType, successor.LicenseType)
	assert.EqualValues(t, parent.Territories, successor.Territories)
	assert.Equal(t, parent.ExclusivityCategory, successor.ExclusivityCategory)
	assert.True(t, successor.AutoRenew)
}

func TestBuildSuccessorLicenseValidatesClean(t *testing.T) {
	parent := renewableLicense()
	offer := &models.RenewalOffer{
		Pricing: models.OfferPricing{NewFeeCents: 100000, NewRevShareBps: 500, SuggestedDurationDays: 180},
	}
	offer.ID = uuid.New()

	successor := buildSuccessorLicense(parent, offer)
	assert.NoError(t, ValidateDraft(successor))
	assert.Equal(t, 180, successor.DurationDays())
}
