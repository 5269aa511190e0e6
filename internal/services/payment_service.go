// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/brandgrid/licensing-backend/internal/apperrors"
	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/models"
)

type PaymentService struct {
	db  *gorm.DB
	cfg config.PaymentConfig
}

func NewPaymentService(db *gorm.DB, cfg config.PaymentConfig) *PaymentService {
	stripe.Key = cfg.StripeSecretKey
	return &PaymentService{db: db, cfg: cfg}
}

// HasOutstandingBalance reports whether the brand has unsettled license or
// renewal fees. Failed transactions count as outstanding until retried or
// refunded; pending ones until they settle.
func (s *PaymentService) HasOutstandingBalance(tx *gorm.DB, brandID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&models.Transaction{}).
		Where("brand_id = ? AND status IN ?", brandID,
			[]models.TransactionStatus{models.TransactionStatusPending, models.TransactionStatusFailed}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check payment standing: %w", err)
	}
	return count > 0, nil
}

// CreateRenewalFeeIntent opens a Stripe payment intent for the successor
// license fee and records the pending transaction. Called after the
// acceptance transaction commits; payment is collected out of band.
func (s *PaymentService) CreateRenewalFeeIntent(successor *models.License, offer *models.RenewalOffer) error {
	transaction := &models.Transaction{
		TransactionType: models.TransactionTypeRenewalFee,
		LicenseID:       successor.ID,
		BrandID:         successor.BrandID,
		AmountCents:     successor.FeeCents,
		Status:          models.TransactionStatusPending,
	}

	if s.cfg.StripeSecretKey != "" {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(successor.FeeCents),
			Currency: stripe.String(string(stripe.CurrencyUSD)),
			Params: stripe.Params{
				Metadata: map[string]string{
					"license_id": successor.ID.String(),
					"offer_id":   offer.ID.String(),
					"kind":       string(models.TransactionTypeRenewalFee),
				},
			},
		}

		intent, err := paymentintent.New(params)
		if err != nil {
			logrus.WithError(err).WithField("license_id", successor.ID).Error("Failed to create payment intent")
			transaction.Status = models.TransactionStatusFailed
			transaction.FailureReason = err.Error()
			s.db.Create(transaction)
			return fmt.Errorf("failed to create payment intent: %w", err)
		}

		transaction.PaymentReference = intent.ID
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"license_id":     successor.ID,
		"transaction_id": transaction.ID,
		"amount_cents":   successor.FeeCents,
	}).Info("Renewal fee payment initiated")

	return nil
}

// ConfirmTransaction marks a pending transaction settled, typically from a
// payment webhook.
func (s *PaymentService) ConfirmTransaction(transactionID uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "transaction"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if transaction.Status != models.TransactionStatusPending {
		return nil, apperrors.NewValidation("status", fmt.Sprintf("transaction is %s, not pending", transaction.Status))
	}

	now := time.Now().UTC()
	transaction.Status = models.TransactionStatusCompleted
	transaction.ProcessedAt = &now

	if err := s.db.Save(&transaction).Error; err != nil {
		return nil, fmt.Errorf("failed to confirm transaction: %w", err)
	}

	return &transaction, nil
}

// FailTransaction records a payment failure with its reason.
func (s *PaymentService) FailTransaction(transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "transaction"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	transaction.Status = models.TransactionStatusFailed
	transaction.FailureReason = reason

	if err := s.db.Save(&transaction).Error; err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	return &transaction, nil
}

// ListTransactions returns a brand's transactions, newest first.
func (s *PaymentService) ListTransactions(brandID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.Where("brand_id = ?", brandID).
		Order("created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return transactions, nil
}
