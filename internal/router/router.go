// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/handlers"
	"github.com/brandgrid/licensing-backend/internal/middleware"
	"github.com/brandgrid/licensing-backend/internal/services"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg.Email)
	conflictService := services.NewConflictService(db)
	paymentService := services.NewPaymentService(db, cfg.Payment)
	analyticsService := services.NewAnalyticsService(db)

	authService := services.NewAuthService(db, cfg.JWT)
	licenseService := services.NewLicenseService(db, conflictService, notificationService)
	renewalService := services.NewRenewalService(db, cfg.Renewal, licenseService, conflictService, paymentService, analyticsService, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	renewalHandler := handlers.NewRenewalHandler(renewalService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	adminHandler := handlers.NewAdminHandler(licenseService, renewalService, notificationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
		}

		// License routes
		licenses := v1.Group("/licenses")
		licenses.Use(middleware.AuthRequired())
		{
			licenses.POST("", licenseHandler.CreateLicense)
			licenses.GET("", licenseHandler.ListLicenses)
			licenses.POST("/check-conflicts", middleware.ConflictCheckRateLimit(), licenseHandler.CheckConflicts)
			licenses.GET("/:id", licenseHandler.GetLicense)
			licenses.PUT("/:id", licenseHandler.UpdateLicense)
			licenses.POST("/:id/submit", licenseHandler.SubmitLicense)
			licenses.POST("/:id/sign", licenseHandler.SignLicense)
			licenses.GET("/:id/chain", licenseHandler.GetRenewalChain)

			// Renewal pipeline
			licenses.GET("/:id/renewal/eligibility", renewalHandler.GetEligibility)
			licenses.POST("/:id/renewal/offers", renewalHandler.GenerateOffer)
			licenses.GET("/:id/renewal/offers/current", renewalHandler.GetCurrentOffer)
			licenses.POST("/:id/renewal/accept", renewalHandler.AcceptOffer)
			licenses.POST("/:id/renewal/reject", renewalHandler.RejectOffer)
		}

		// Analytics routes
		analytics := v1.Group("/analytics")
		analytics.Use(middleware.AuthRequired())
		{
			analytics.GET("/renewals", analyticsHandler.GetRenewalAnalytics)
		}

		// Payment routes
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.GET("/transactions", paymentHandler.ListTransactions)
			payments.POST("/transactions/:id/confirm", paymentHandler.ConfirmTransaction)
			payments.POST("/transactions/:id/fail", paymentHandler.FailTransaction)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("/licenses/:id/terminate", adminHandler.TerminateLicense)
			admin.POST("/licenses/:id/suspend", adminHandler.SuspendLicense)
			admin.POST("/licenses/:id/resume", adminHandler.ResumeLicense)
			admin.POST("/maintenance/expire-licenses", adminHandler.ExpireLapsedLicenses)
			admin.POST("/maintenance/expire-offers", adminHandler.ReconcileExpiredOffers)
			admin.GET("/notifications", adminHandler.ListNotifications)
			admin.POST("/notifications/:id/read", adminHandler.MarkNotificationRead)
		}
	}

	return r
}
