// internal/handlers/renewal.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brandgrid/licensing-backend/internal/i18n"
	"github.com/brandgrid/licensing-backend/internal/services"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

type RenewalHandler struct {
	renewalService *services.RenewalService
}

func NewRenewalHandler(renewalService *services.RenewalService) *RenewalHandler {
	return &RenewalHandler{
		renewalService: renewalService,
	}
}

// GET /licenses/:id/renewal/eligibility
func (h *RenewalHandler) GetEligibility(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.renewalService.GetEligibility(id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /licenses/:id/renewal/offers
func (h *RenewalHandler) GenerateOffer(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.GenerateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	offer, err := h.renewalService.GenerateOffer(id, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRenewalOfferCreated),
		"offer":   offer,
	})
}

// GET /licenses/:id/renewal/offers/current
func (h *RenewalHandler) GetCurrentOffer(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	offer, err := h.renewalService.GetCurrentOffer(id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, offer)
}

// POST /licenses/:id/renewal/accept
func (h *RenewalHandler) AcceptOffer(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.AcceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	successor, err := h.renewalService.AcceptOffer(id, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":           i18n.T(lang, i18n.KeyRenewalOfferAccepted),
		"successor_license": successor,
	})
}

// POST /licenses/:id/renewal/reject
func (h *RenewalHandler) RejectOffer(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req struct {
		OfferID uuid.UUID `json:"offer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	offer, err := h.renewalService.RejectOffer(id, req.OfferID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRenewalOfferRejected),
		"offer":   offer,
	})
}
