// Package security provides centralized security configuration for the
// Travel Together application.
package security

import (
	"time"
)

// SecurityConfig holds all security-related tunables.
type SecurityConfig struct {
	// Session management
	SessionTimeout    time.Duration // Session inactivity timeout
	SessionCookieName string        // Name of session cookie
	SessionSecure     bool          // Require HTTPS for session cookies
	SessionHTTPOnly   bool          // Prevent JavaScript access to session cookies
	SessionSameSite   string        // CSRF protection via SameSite attribute

	// Brute force protection
	LoginRateLimit          int           // Max login attempts per minute per IP
	AccountLockoutThreshold int           // Failed attempts before account lockout
	AccountLockoutDuration  time.Duration // How long account stays locked

	// Verification email abuse protection
	VerifyEmailRateLimit int // Max verification mails per hour per user

	// Input validation limits
	MaxUsernameLength  int
	MaxNameLength      int
	MaxEmailLength     int
	MaxTitleLength     int // Trip and location titles
	MaxGroupNameLength int
	MaxURLLength       int
	MaxBulkMembers     int // Identifiers accepted per bulk member add

	// Database
	QueryTimeout time.Duration // Per-request statement budget

	// Monitoring
	AlertThresholdFailures int // Failed logins from one IP before alerting
}

// DefaultSecurityConfig returns the recommended configuration.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		SessionTimeout:    8 * time.Hour,
		SessionCookieName: "traveltogether_session",
		SessionSecure:     true,
		SessionHTTPOnly:   true,
		SessionSameSite:   "Lax",

		LoginRateLimit:          5,
		AccountLockoutThreshold: 10,
		AccountLockoutDuration:  30 * time.Minute,

		VerifyEmailRateLimit: 3,

		MaxUsernameLength:  64,
		MaxNameLength:      64,
		MaxEmailLength:     128,
		MaxTitleLength:     128,
		MaxGroupNameLength: 128,
		MaxURLLength:       256,
		MaxBulkMembers:     50,

		QueryTimeout: 30 * time.Second,

		AlertThresholdFailures: 10,
	}
}
