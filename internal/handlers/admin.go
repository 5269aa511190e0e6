// internal/handlers/admin.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brandgrid/licensing-backend/internal/i18n"
	"github.com/brandgrid/licensing-backend/internal/services"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

type AdminHandler struct {
	licenseService      *services.LicenseService
	renewalService      *services.RenewalService
	notificationService *services.NotificationService
}

func NewAdminHandler(licenseService *services.LicenseService, renewalService *services.RenewalService, notificationService *services.NotificationService) *AdminHandler {
	return &AdminHandler{
		licenseService:      licenseService,
		renewalService:      renewalService,
		notificationService: notificationService,
	}
}

// POST /admin/licenses/:id/terminate
func (h *AdminHandler) TerminateLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	adminID, ok := adminIDFromContext(c)
	if !ok {
		return
	}

	var req services.TerminateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	license, err := h.licenseService.TerminateLicense(id, adminID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseTerminated),
		"license": license,
	})
}

// POST /admin/licenses/:id/suspend
func (h *AdminHandler) SuspendLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	adminID, ok := adminIDFromContext(c)
	if !ok {
		return
	}

	var req services.TerminateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	license, err := h.licenseService.SuspendLicense(id, adminID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseSuspended),
		"license": license,
	})
}

// POST /admin/licenses/:id/resume
func (h *AdminHandler) ResumeLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	adminID, ok := adminIDFromContext(c)
	if !ok {
		return
	}

	license, err := h.licenseService.ResumeLicense(id, adminID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseResumed),
		"license": license,
	})
}

// POST /admin/maintenance/expire-licenses
func (h *AdminHandler) ExpireLapsedLicenses(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	count, err := h.licenseService.ExpireLapsedLicenses(time.Now().UTC())
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":          i18n.T(lang, i18n.KeyAdminActionSuccess),
		"expired_licenses": count,
	})
}

// POST /admin/maintenance/expire-offers
func (h *AdminHandler) ReconcileExpiredOffers(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	count, err := h.renewalService.ReconcileExpiredOffers(time.Now().UTC())
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":        i18n.T(lang, i18n.KeyAdminActionSuccess),
		"expired_offers": count,
	})
}

// GET /admin/notifications
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	notifications, err := h.notificationService.ListNotifications(params.Limit)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"notifications": notifications})
}

// POST /admin/notifications/:id/read
func (h *AdminHandler) MarkNotificationRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification ID", nil)
		return
	}

	if err := h.notificationService.MarkNotificationRead(id); err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAdminActionSuccess)})
}

func adminIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	idStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
