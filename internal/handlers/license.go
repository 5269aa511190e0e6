// internal/handlers/license.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brandgrid/licensing-backend/internal/i18n"
	"github.com/brandgrid/licensing-backend/internal/models"
	"github.com/brandgrid/licensing-backend/internal/services"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
	}
}

// POST /licenses
func (h *LicenseHandler) CreateLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	license, err := h.licenseService.CreateLicense(&req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseCreated),
		"license": license,
	})
}

// POST /licenses/check-conflicts
func (h *LicenseHandler) CheckConflicts(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	var excludeID *uuid.UUID
	if excludeStr := c.Query("exclude_license_id"); excludeStr != "" {
		parsed, err := uuid.Parse(excludeStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid exclude_license_id", nil)
			return
		}
		excludeID = &parsed
	}

	result, err := h.licenseService.PreviewConflicts(&req, excludeID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /licenses
func (h *LicenseHandler) ListLicenses(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.LicenseSearchParams{
		PaginationParams: params,
	}

	if assetIDStr := c.Query("asset_id"); assetIDStr != "" {
		if assetID, err := uuid.Parse(assetIDStr); err == nil {
			searchParams.AssetID = &assetID
		}
	}

	if brandIDStr := c.Query("brand_id"); brandIDStr != "" {
		if brandID, err := uuid.Parse(brandIDStr); err == nil {
			searchParams.BrandID = &brandID
		}
	}

	if status := c.Query("status"); status != "" {
		licenseStatus := models.LicenseStatus(status)
		searchParams.Status = &licenseStatus
	}

	if licenseType := c.Query("license_type"); licenseType != "" {
		lType := models.LicenseType(licenseType)
		searchParams.LicenseType = &lType
	}

	licenses, total, err := h.licenseService.SearchLicenses(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	result := utils.CreatePaginationResult(licenses, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /licenses/:id
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	license, err := h.licenseService.GetLicense(id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// PUT /licenses/:id
func (h *LicenseHandler) UpdateLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	role, _ := utils.GetUserRoleFromContext(c)
	license, err := h.licenseService.UpdateLicense(id, &req, role == string(models.UserRoleAdmin))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseUpdated),
		"license": license,
	})
}

// POST /licenses/:id/submit
func (h *LicenseHandler) SubmitLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	license, err := h.licenseService.SubmitLicense(id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseSubmitted),
		"license": license,
	})
}

// POST /licenses/:id/sign
func (h *LicenseHandler) SignLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	roleStr, exists := utils.GetUserRoleFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	license, err := h.licenseService.SignLicense(id, models.UserRole(roleStr))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	messageKey := i18n.KeyLicenseSigned
	if license.Status == models.LicenseStatusActive {
		messageKey = i18n.KeyLicenseActivated
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, messageKey),
		"license": license,
	})
}

// GET /licenses/:id/chain
func (h *LicenseHandler) GetRenewalChain(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	chain, err := h.licenseService.GetRenewalChain(id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"chain": chain})
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
