// internal/services/pricing.go
package services

import (
	"fmt"
	"math"
	"time"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/models"
)

// Per-strategy adjustment bounds, in whole percent.
const (
	usageAdjustmentMin  = -20.0
	usageAdjustmentMax  = 50.0
	marketAdjustmentMin = -20.0
	marketAdjustmentMax = 20.0
	perfAdjustmentMin   = -10.0
	perfAdjustmentMax   = 30.0
)

// PricingSignals carries the externally supplied inputs the pricing engine
// depends on. Retrieval is the caller's responsibility; the engine itself
// performs no I/O, so identical signals always price identically.
type PricingSignals struct {
	// UsageIntensity is normalized consumption relative to the licensed
	// allowance: 1.0 means exactly as contracted.
	UsageIntensity float64
	// ROI is campaign return per fee dollar.
	ROI float64
	// MarketMedianFeeCents is the median fee across comparable active
	// licenses in the asset's category; 0 means no comparables exist.
	MarketMedianFeeCents int64
}

// SuggestedTerms is the eligibility evaluator's starting point for pricing.
type SuggestedTerms struct {
	DurationDays int   `json:"duration_days"`
	FeeCents     int64 `json:"fee_cents"`
	RevShareBps  int   `json:"rev_share_bps"`
}

// EligibilityInputs are the facts about a license's standing that the
// evaluator cannot derive from the license row alone.
type EligibilityInputs struct {
	PriorRenewals         int
	HasUnresolvedDispute  bool
	HasOutstandingBalance bool
	ROI                   float64
}

type EligibilityResult struct {
	Eligible       bool            `json:"eligible"`
	Reasons        []string        `json:"reasons,omitempty"`
	SuggestedTerms *SuggestedTerms `json:"suggested_terms,omitempty"`
}

// EvaluateEligibility decides whether a license may be renewed and, if so,
// computes the suggested successor terms. Blocking reasons are accumulated
// rather than short-circuited so the caller can display all of them at once.
func EvaluateEligibility(license *models.License, in EligibilityInputs, cfg config.RenewalConfig, now time.Time) EligibilityResult {
	var reasons []string

	switch status := license.EffectiveStatus(now); status {
	case models.LicenseStatusActive:
		// renewable
	case models.LicenseStatusExpired:
		if !license.WithinGracePeriod(now, cfg.GraceDays) {
			reasons = append(reasons, fmt.Sprintf("license expired more than %d days ago", cfg.GraceDays))
		}
	case models.LicenseStatusTerminated:
		reasons = append(reasons, "license was terminated")
	default:
		reasons = append(reasons, fmt.Sprintf("license status %s is not renewable", status))
	}

	if in.HasUnresolvedDispute {
		reasons = append(reasons, "license has an unresolved dispute")
	}
	if in.HasOutstandingBalance {
		reasons = append(reasons, "brand has an outstanding balance")
	}

	if len(reasons) > 0 {
		return EligibilityResult{Eligible: false, Reasons: reasons}
	}

	return EligibilityResult{
		Eligible:       true,
		SuggestedTerms: suggestTerms(license, in, cfg),
	}
}

// suggestTerms applies the loyalty discount and performance bonus to the
// current terms. Adjustments compose multiplicatively on the fee and
// additively (in basis points) on revenue share; each result is clamped to
// the absolute bounds independently.
func suggestTerms(license *models.License, in EligibilityInputs, cfg config.RenewalConfig) *SuggestedTerms {
	loyaltyPct := cfg.LoyaltyDiscountPct * float64(in.PriorRenewals)
	if loyaltyPct > cfg.LoyaltyCapPct {
		loyaltyPct = cfg.LoyaltyCapPct
	}

	feeFactor := 1 - loyaltyPct/100
	bpsDelta := -int(math.Round(loyaltyPct * 100))

	if in.ROI > cfg.ROIThreshold {
		feeFactor *= 1 + cfg.PerformanceBonusPct/100
		bpsDelta += int(math.Round(cfg.PerformanceBonusPct * 100))
	}

	return &SuggestedTerms{
		DurationDays: license.DurationDays(),
		FeeCents:     clampFee(int64(math.Round(float64(license.FeeCents) * feeFactor))),
		RevShareBps:  clampBps(license.RevShareBps + bpsDelta),
	}
}

// PriceRenewal computes the priced output of a renewal offer. Pure: given the
// same license, base terms and signals, the result is byte-identical.
func PriceRenewal(license *models.License, base SuggestedTerms, strategy models.PricingStrategy, customAdjustmentPercent *float64, signals PricingSignals) (models.OfferPricing, error) {
	if !strategy.Valid() {
		return models.OfferPricing{}, apperrors.NewValidation("strategy", fmt.Sprintf("unknown pricing strategy %q", strategy))
	}

	var adjustment float64
	switch strategy {
	case models.StrategyFlatRenewal:
		adjustment = 0

	case models.StrategyUsageBased:
		adjustment = usageAdjustment(signals.UsageIntensity)

	case models.StrategyMarketRate:
		adjustment = marketAdjustment(base.FeeCents, signals.MarketMedianFeeCents)

	case models.StrategyPerformanceBased:
		adjustment = performanceAdjustment(signals.ROI)

	case models.StrategyNegotiated:
		if customAdjustmentPercent == nil {
			return models.OfferPricing{}, apperrors.NewValidation("custom_adjustment_percent", "negotiated pricing requires an explicit adjustment percent")
		}
		adjustment = *customAdjustmentPercent

	case models.StrategyAutomatic:
		// Equal-thirds blend of the component strategies, clamped to the
		// union of their individual bounds.
		blend := (usageAdjustment(signals.UsageIntensity) +
			marketAdjustment(base.FeeCents, signals.MarketMedianFeeCents) +
			performanceAdjustment(signals.ROI)) / 3
		adjustment = clampPct(blend, usageAdjustmentMin, usageAdjustmentMax)
	}

	return models.OfferPricing{
		Strategy:              strategy,
		OriginalFeeCents:      license.FeeCents,
		NewFeeCents:           clampFee(int64(math.Round(float64(base.FeeCents) * (1 + adjustment/100)))),
		OriginalRevShareBps:   license.RevShareBps,
		NewRevShareBps:        clampBps(base.RevShareBps + int(math.Round(adjustment*100))),
		AdjustmentPercent:     adjustment,
		SuggestedDurationDays: base.DurationDays,
	}, nil
}

// usageAdjustment maps normalized usage intensity onto a percent adjustment.
// Consumption at exactly the contracted level prices flat; a license used at
// double its allowance hits the +50% ceiling.
func usageAdjustment(intensity float64) float64 {
	return clampPct((intensity-1)*50, usageAdjustmentMin, usageAdjustmentMax)
}

// marketAdjustment moves the fee toward the category median.
func marketAdjustment(baseFeeCents, medianFeeCents int64) float64 {
	if baseFeeCents <= 0 || medianFeeCents <= 0 {
		return 0
	}
	delta := float64(medianFeeCents-baseFeeCents) / float64(baseFeeCents) * 100
	return clampPct(delta, marketAdjustmentMin, marketAdjustmentMax)
}

// performanceAdjustment scales with distance from the break-even ROI of 1.0.
func performanceAdjustment(roi float64) float64 {
	return clampPct((roi-1)*20, perfAdjustmentMin, perfAdjustmentMax)
}

func clampPct(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFee(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampBps(v int) int {
	if v < 0 {
		return 0
	}
	if v > models.MaxRevShareBps {
		return models.MaxRevShareBps
	}
	return v
}
