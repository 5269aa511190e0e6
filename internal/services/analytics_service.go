// internal/services/analytics_service.go
package services

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/brandgrid/licensing-backend/internal/models"
)

// AnalyticsService derives renewal reporting from historical license and
// offer records. Read-only: no business rule lives here.
type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

type RenewalFunnel struct {
	Eligible int `json:"eligible"`
	Offered  int `json:"offered"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Expired  int `json:"expired"`
}

type TimeToRenewalStats struct {
	Count      int     `json:"count"`
	AvgDays    float64 `json:"avg_days"`
	MedianDays float64 `json:"median_days"`
}

type AnalyticsSummary struct {
	PeriodStart          time.Time                          `json:"period_start"`
	PeriodEnd            time.Time                          `json:"period_end"`
	Funnel               RenewalFunnel                      `json:"funnel"`
	RenewalRate          float64                            `json:"renewal_rate"`
	StrategyDistribution map[models.PricingStrategy]int     `json:"strategy_distribution"`
	TimeToRenewal        TimeToRenewalStats                 `json:"time_to_renewal"`
}

// ComputeRenewalAnalytics aggregates the supplied records. Pure so the
// aggregation rules are testable without a database; offer statuses are
// evaluated lazily as of now.
func ComputeRenewalAnalytics(eligibleCount int, offers []models.RenewalOffer, start, end, now time.Time) AnalyticsSummary {
	summary := AnalyticsSummary{
		PeriodStart:          start,
		PeriodEnd:            end,
		Funnel:               RenewalFunnel{Eligible: eligibleCount},
		StrategyDistribution: make(map[models.PricingStrategy]int),
	}

	var renewalDays []float64
	for i := range offers {
		offer := &offers[i]

		summary.Funnel.Offered++
		summary.StrategyDistribution[offer.Pricing.Strategy]++

		switch offer.EffectiveStatus(now) {
		case models.OfferStatusAccepted:
			summary.Funnel.Accepted++
			if offer.AcceptedAt != nil {
				renewalDays = append(renewalDays, offer.AcceptedAt.Sub(offer.CreatedAt).Hours()/24)
			}
		case models.OfferStatusRejected:
			summary.Funnel.Rejected++
		case models.OfferStatusExpired:
			summary.Funnel.Expired++
		}
	}

	if summary.Funnel.Offered > 0 {
		summary.RenewalRate = float64(summary.Funnel.Accepted) / float64(summary.Funnel.Offered)
	}
	summary.TimeToRenewal = timeToRenewalStats(renewalDays)

	return summary
}

func timeToRenewalStats(days []float64) TimeToRenewalStats {
	if len(days) == 0 {
		return TimeToRenewalStats{}
	}

	sort.Float64s(days)

	var sum float64
	for _, d := range days {
		sum += d
	}

	mid := len(days) / 2
	median := days[mid]
	if len(days)%2 == 0 {
		median = (days[mid-1] + days[mid]) / 2
	}

	return TimeToRenewalStats{
		Count:      len(days),
		AvgDays:    sum / float64(len(days)),
		MedianDays: median,
	}
}

// GetRenewalAnalytics loads the period's records and aggregates them.
// Licenses whose term ends inside the window count as the eligible
// population; offers are attributed to the window they were created in.
func (s *AnalyticsService) GetRenewalAnalytics(start, end time.Time) (*AnalyticsSummary, error) {
	var eligibleCount int64
	err := s.db.Model(&models.License{}).
		Where("end_date >= ? AND end_date < ? AND status IN ?", start, end,
			[]models.LicenseStatus{models.LicenseStatusActive, models.LicenseStatusExpired}).
		Count(&eligibleCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count eligible licenses: %w", err)
	}

	var offers []models.RenewalOffer
	err = s.db.Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch offers: %w", err)
	}

	summary := ComputeRenewalAnalytics(int(eligibleCount), offers, start, end, time.Now().UTC())
	return &summary, nil
}

// MarketComparable returns the median fee across binding licenses in the
// asset's category, excluding the license being priced. Zero means no
// comparables exist and market pricing falls back to a flat adjustment.
func (s *AnalyticsService) MarketComparable(tx *gorm.DB, license *models.License) (int64, error) {
	var median float64
	err := tx.Raw(`
		SELECT COALESCE(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY l.fee_cents), 0)
		FROM licenses l
		JOIN assets a ON a.id = l.asset_id
		WHERE a.category = (SELECT category FROM assets WHERE id = ?)
		  AND l.status = ?
		  AND l.id <> ?
		  AND l.deleted_at IS NULL`,
		license.AssetID, models.LicenseStatusActive, license.ID).
		Scan(&median).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute market comparable: %w", err)
	}

	return int64(median), nil
}
