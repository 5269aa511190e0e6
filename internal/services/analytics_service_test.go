// internal/services/analytics_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brandgrid/licensing-backend/internal/models"
)

func makeOffer(strategy models.PricingStrategy, status models.OfferStatus, created time.Time) models.RenewalOffer {
	offer := models.RenewalOffer{
		Pricing:   models.OfferPricing{Strategy: strategy},
		Status:    status,
		ExpiresAt: created.AddDate(0, 0, 7),
	}
	offer.CreatedAt = created
	return offer
}

func TestComputeRenewalAnalyticsFunnel(t *testing.T) {
	start := day(2025, 1, 1)
	end := day(2025, 4, 1)
	now := day(2025, 4, 15)

	accepted := makeOffer(models.StrategyFlatRenewal, models.OfferStatusAccepted, day(2025, 1, 10))
	acceptedAt := day(2025, 1, 13)
	accepted.AcceptedAt = &acceptedAt

	accepted2 := makeOffer(models.StrategyAutomatic, models.OfferStatusAccepted, day(2025, 2, 1))
	acceptedAt2 := day(2025, 2, 6)
	accepted2.AcceptedAt = &acceptedAt2

	rejected := makeOffer(models.StrategyNegotiated, models.OfferStatusRejected, day(2025, 2, 10))
	expired := makeOffer(models.StrategyFlatRenewal, models.OfferStatusExpired, day(2025, 3, 1))

	// Stored ACTIVE but past its window: counted as expired, lazily.
	lapsed := makeOffer(models.StrategyMarketRate, models.OfferStatusActive, day(2025, 3, 20))

	offers := []models.RenewalOffer{accepted, accepted2, rejected, expired, lapsed}
	summary := ComputeRenewalAnalytics(10, offers, start, end, now)

	assert.Equal(t, 10, summary.Funnel.Eligible)
	assert.Equal(t, 5, summary.Funnel.Offered)
	assert.Equal(t, 2, summary.Funnel.Accepted)
	assert.Equal(t, 1, summary.Funnel.Rejected)
	assert.Equal(t, 2, summary.Funnel.Expired)

	assert.InDelta(t, 0.4, summary.RenewalRate, 1e-9)

	assert.Equal(t, 2, summary.StrategyDistribution[models.StrategyFlatRenewal])
	assert.Equal(t, 1, summary.StrategyDistribution[models.StrategyAutomatic])
	assert.Equal(t, 1, summary.StrategyDistribution[models.StrategyNegotiated])
	assert.Equal(t, 1, summary.StrategyDistribution[models.StrategyMarketRate])

	// Time to renewal: 3 and 5 days → avg 4, median 4.
	assert.Equal(t, 2, summary.TimeToRenewal.Count)
	assert.InDelta(t, 4.0, summary.TimeToRenewal.AvgDays, 1e-9)
	assert.InDelta(t, 4.0, summary.TimeToRenewal.MedianDays, 1e-9)
}

func TestComputeRenewalAnalyticsEmpty(t *testing.T) {
	summary := ComputeRenewalAnalytics(0, nil, day(2025, 1, 1), day(2025, 2, 1), day(2025, 2, 1))

	assert.Equal(t, 0, summary.Funnel.Offered)
	assert.Equal(t, 0.0, summary.RenewalRate)
	assert.Equal(t, 0, summary.TimeToRenewal.Count)
	assert.Empty(t, summary.StrategyDistribution)
}

func TestTimeToRenewalMedianOddCount(t *testing.T) {
	stats := timeToRenewalStats([]float64{7, 1, 3})

	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 11.0/3, stats.AvgDays, 1e-9)
	assert.InDelta(t, 3.0, stats.MedianDays, 1e-9)
}
