// internal/services/notification_service.go
package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/models"
)

// NotificationService is the domain-event sink. Every event is recorded as an
// AdminNotification row; email delivery is best effort and never blocks or
// fails the originating operation.
type NotificationService struct {
	db  *gorm.DB
	cfg config.EmailConfig
}

func NewNotificationService(db *gorm.DB, cfg config.EmailConfig) *NotificationService {
	return &NotificationService{db: db, cfg: cfg}
}

func (s *NotificationService) SendConflictDetectedNotification(candidate *models.License, result models.ConflictResult) {
	reasons := make([]string, 0, len(result.Conflicts))
	for _, c := range result.Conflicts {
		reasons = append(reasons, string(c.Reason))
	}

	s.record(&models.AdminNotification{
		Type:     "license_conflict_detected",
		Title:    "License conflict detected",
		Message:  fmt.Sprintf("Candidate license for asset %s rejected: %s", candidate.AssetID, strings.Join(reasons, ", ")),
		Priority: "high",

		RelatedResourceType: "asset",
		RelatedResourceID:   &candidate.AssetID,
	})
}

func (s *NotificationService) SendLicenseActivatedNotification(license *models.License) {
	id := license.ID
	s.record(&models.AdminNotification{
		Type:                "license_activated",
		Title:               "License activated",
		Message:             fmt.Sprintf("License %s for asset %s is now active (%s to %s)", license.ID, license.AssetID, license.StartDate.Format("2006-01-02"), license.EndDate.Format("2006-01-02")),
		Priority:            "medium",
		RelatedResourceType: "license",
		RelatedResourceID:   &id,
	})

	s.sendEmail("License activated", fmt.Sprintf("License %s is now active.", license.ID))
}

func (s *NotificationService) SendLicenseStatusNotification(license *models.License, adminID uuid.UUID) {
	id := license.ID
	s.record(&models.AdminNotification{
		Type:                "license_status_changed",
		Title:               fmt.Sprintf("License %s", license.Status),
		Message:             fmt.Sprintf("License %s moved to %s by admin %s", license.ID, license.Status, adminID),
		Priority:            "medium",
		RelatedResourceType: "license",
		RelatedResourceID:   &id,
	})
}

func (s *NotificationService) SendRenewalOfferNotification(offer *models.RenewalOffer, event string) {
	id := offer.ID
	s.record(&models.AdminNotification{
		Type:  event,
		Title: "Renewal offer update",
		Message: fmt.Sprintf("Offer %s for license %s: %s (new fee %d cents, strategy %s)",
			offer.ID, offer.LicenseID, event, offer.Pricing.NewFeeCents, offer.Pricing.Strategy),
		Priority:            "medium",
		RelatedResourceType: "renewal_offer",
		RelatedResourceID:   &id,
	})

	s.sendEmail("Renewal offer update", fmt.Sprintf("Offer %s for license %s: %s.", offer.ID, offer.LicenseID, event))
}

func (s *NotificationService) NotifyPaymentFailure(license *models.License, err error) {
	id := license.ID
	s.record(&models.AdminNotification{
		Type:                "renewal_payment_failed",
		Title:               "Renewal payment failed",
		Message:             fmt.Sprintf("Payment initiation failed for license %s: %v", license.ID, err),
		Priority:            "high",
		RelatedResourceType: "license",
		RelatedResourceID:   &id,
	})
}

func (s *NotificationService) record(notification *models.AdminNotification) {
	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).WithField("type", notification.Type).Error("Failed to record notification")
	}
}

func (s *NotificationService) sendEmail(subject, body string) {
	if !s.cfg.Enabled {
		return
	}

	msg := fmt.Sprintf("From: %s <%s>\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.FromName, s.cfg.FromEmail, subject, body)

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{s.cfg.FromEmail}, []byte(msg)); err != nil {
		logrus.WithError(err).Warn("Failed to send notification email")
	}
}

// MarkNotificationRead transitions an unread notification.
func (s *NotificationService) MarkNotificationRead(id uuid.UUID) error {
	return s.db.Model(&models.AdminNotification{}).
		Where("id = ? AND status = ?", id, "unread").
		Updates(map[string]interface{}{"status": "read", "read_at": gorm.Expr("NOW()")}).Error
}

// ListNotifications returns recent notifications, newest first.
func (s *NotificationService) ListNotifications(limit int) ([]models.AdminNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []models.AdminNotification
	err := s.db.Order("created_at DESC").Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, nil
}
