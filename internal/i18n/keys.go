// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"

	// Licenses
	KeyLicenseCreated    = "license.created"
	KeyLicenseUpdated    = "license.updated"
	KeyLicenseSubmitted  = "license.submitted"
	KeyLicenseSigned     = "license.signed"
	KeyLicenseActivated  = "license.activated"
	KeyLicenseTerminated = "license.terminated"
	KeyLicenseSuspended  = "license.suspended"
	KeyLicenseResumed    = "license.resumed"
	KeyLicenseNotFound   = "license.not_found"
	KeyLicenseConflict   = "license.conflict"

	// Renewals
	KeyRenewalEligible      = "renewal.eligible"
	KeyRenewalIneligible    = "renewal.ineligible"
	KeyRenewalOfferCreated  = "renewal.offer_created"
	KeyRenewalOfferAccepted = "renewal.offer_accepted"
	KeyRenewalOfferRejected = "renewal.offer_rejected"
	KeyRenewalOfferExpired  = "renewal.offer_expired"
	KeyRenewalOfferStale    = "renewal.offer_stale"
	KeyRenewalOfferNotFound = "renewal_offer.not_found"

	// Assets
	KeyAssetNotFound = "asset.not_found"

	// Payments
	KeyPaymentSuccess = "payment.success"
	KeyPaymentFailed  = "payment.failed"
	KeyPaymentPending = "payment.pending"

	// Admin
	KeyAdminActionSuccess = "admin.action_success"
	KeyAdminAccessDenied  = "admin.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Concurrency
	KeyConcurrencyRetry = "concurrency.retry"
)
