// internal/services/renewal_service_test.go
package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return db, mock
}

func newRenewalService(db *gorm.DB) *RenewalService {
	conflictService := NewConflictService(db)
	licenseService := NewLicenseService(db, conflictService, nil)
	paymentService := NewPaymentService(db, config.PaymentConfig{})
	analyticsService := NewAnalyticsService(db)
	return NewRenewalService(db, renewalConfig(), licenseService, conflictService, paymentService, analyticsService, nil)
}

// Two concurrent offer generations can both pass the supersession UPDATE
// before either commits; the loser's INSERT then trips the one-active-offer
// partial unique index. That must surface as the retryable
// ConcurrencyAbortError, not as a raw driver error.
func TestGenerateOfferSupersessionRaceMapsToConcurrencyAbort(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newRenewalService(db)

	licenseID := uuid.New()
	assetID := uuid.New()
	brandID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("license:" + licenseID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(`SELECT (.+) FROM "licenses"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "asset_id", "brand_id", "license_type", "status",
			"start_date", "end_date", "fee_cents", "rev_share_bps",
		}).AddRow(
			licenseID.String(), assetID.String(), brandID.String(),
			string(models.LicenseTypeNonExclusive), string(models.LicenseStatusActive),
			now.AddDate(0, -6, 0), now.AddDate(0, 6, 0), int64(100000), 500,
		))

	// Eligibility inputs: no disputes, no outstanding balance, no reported ROI.
	mock.ExpectQuery(`SELECT count\(\*\) FROM "disputes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT (.+) FROM "assets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(assetID.String()))

	// Pricing signals: no comparables, no settled usage.
	mock.ExpectQuery("PERCENTILE_CONT").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0.0))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_cents\), 0\) FROM "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

	// Supersession sees nothing to expire; the INSERT loses the race against a
	// concurrently committed offer.
	mock.ExpectExec(`UPDATE "renewal_offers" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "renewal_offers"`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_renewal_offers_one_active"})
	mock.ExpectRollback()

	offer, err := svc.GenerateOffer(licenseID, &GenerateOfferRequest{Strategy: models.StrategyFlatRenewal})

	require.Error(t, err)
	assert.Nil(t, offer)
	assert.True(t, apperrors.IsConcurrencyAbort(err))

	var abort *apperrors.ConcurrencyAbortError
	require.True(t, errors.As(err, &abort))

	// The driver error stays reachable through Unwrap for logging.
	var pqErr *pq.Error
	require.True(t, errors.As(abort.Err, &pqErr))
	assert.Equal(t, pq.ErrorCode("23505"), pqErr.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}
