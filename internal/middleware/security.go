// Package middleware provides HTTP middleware for authentication,
// database gating, and permission checks. This file carries the security
// middleware suite: headers, request logging, rate limits, and CSRF.
package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/parityerror/traveltogether/internal/security"
)

// SecurityMiddleware provides centralized security functionality.
type SecurityMiddleware struct {
	logger            *security.Logger
	config            *security.SecurityConfig
	rateLimiter       *security.RateLimiter
	accountLockout    *security.AccountLockout
	validationService *security.ValidationService
	securityMonitor   *security.SecurityMonitor
}

// NewSecurityMiddleware creates a new security middleware instance.
func NewSecurityMiddleware(logger *security.Logger, config *security.SecurityConfig, alerter security.Alerter) *SecurityMiddleware {
	return &SecurityMiddleware{
		logger:            logger,
		config:            config,
		rateLimiter:       security.NewRateLimiter(config.LoginRateLimit, 12*time.Second),
		accountLockout:    security.NewAccountLockout(config.AccountLockoutThreshold, config.AccountLockoutDuration),
		validationService: security.NewValidationService(config),
		securityMonitor:   security.NewSecurityMonitor(logger, config, alerter),
	}
}

// CSRFProtection validates the CSRF token on state-changing requests.
func (sm *SecurityMiddleware) CSRFProtection(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != "POST" && c.Method() != "PUT" && c.Method() != "DELETE" {
			return c.Next()
		}

		sess, err := store.Get(c)
		if err != nil {
			return c.Status(fiber.StatusForbidden).SendString("Invalid session")
		}

		sessionToken := sess.Get("csrf_token")
		if sessionToken == nil {
			token := generateCSRFToken()
			sess.Set("csrf_token", token)
			_ = sess.Save()

			sm.logger.SecurityEvent(security.EventCSRFViolation, nil, "", c.IP(), c.Get("User-Agent"),
				map[string]interface{}{
					"method": c.Method(),
					"path":   c.Path(),
					"reason": "missing_token",
				})

			return c.Status(fiber.StatusForbidden).SendString("CSRF token missing")
		}

		requestToken := c.Get("X-CSRF-Token")
		if requestToken == "" {
			requestToken = c.FormValue("csrf_token")
		}

		if requestToken != sessionToken {
			sm.logger.SecurityEvent(security.EventCSRFViolation, nil, "", c.IP(), c.Get("User-Agent"),
				map[string]interface{}{
					"method": c.Method(),
					"path":   c.Path(),
					"reason": "token_mismatch",
				})

			return c.Status(fiber.StatusForbidden).SendString("CSRF token invalid")
		}

		return c.Next()
	}
}

// SetCSRFToken makes the session's CSRF token available to templates,
// minting one when absent.
func (sm *SecurityMiddleware) SetCSRFToken(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return c.Next()
		}

		token := sess.Get("csrf_token")
		if token == nil {
			token = generateCSRFToken()
			sess.Set("csrf_token", token)
			_ = sess.Save()
		}

		c.Locals("csrf_token", token)

		return c.Next()
	}
}

// LoginRateLimit checks the per-IP login budget and the per-account lockout
// before credentials are even examined.
func (sm *SecurityMiddleware) LoginRateLimit(username, ipAddress string) error {
	if !sm.rateLimiter.Allow(ipAddress) {
		sm.logger.SecurityEvent(security.EventRateLimitExceeded, nil, username, ipAddress, "",
			map[string]interface{}{
				"endpoint": "/login",
				"limit":    sm.config.LoginRateLimit,
			})

		return fmt.Errorf("too many login attempts, please try again later")
	}

	if sm.accountLockout.IsLocked(username) {
		remaining := sm.accountLockout.LockoutTimeRemaining(username)

		sm.logger.SecurityEvent(security.EventAccountLocked, nil, username, ipAddress, "",
			map[string]interface{}{
				"locked_for": remaining.String(),
			})

		return fmt.Errorf("account is locked due to too many failed attempts, try again in %d minutes", int(remaining.Minutes())+1)
	}

	return nil
}

// RecordLoginFailure records a failed login attempt against the lockout and
// the pattern monitor.
func (sm *SecurityMiddleware) RecordLoginFailure(username, ipAddress string) {
	locked := sm.accountLockout.RecordFailedAttempt(username)

	sm.logger.SecurityEvent(security.EventLoginFailure, nil, username, ipAddress, "",
		map[string]interface{}{
			"locked": locked,
		})

	sm.securityMonitor.MonitorLoginFailure(ipAddress)
}

// RecordLoginSuccess resets lockout counters on successful login.
func (sm *SecurityMiddleware) RecordLoginSuccess(username, ipAddress string, userID int) {
	sm.accountLockout.ResetAttempts(username)

	sm.logger.SecurityEvent(security.EventLoginSuccess, &userID, username, ipAddress, "",
		map[string]interface{}{
			"success": true,
		})
}

// RateLimit applies a token-bucket limit to an endpoint, keyed by user when
// authenticated and by IP otherwise.
func (sm *SecurityMiddleware) RateLimit(limiter *security.RateLimiter, endpointName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()
		if username := c.Locals("username"); username != nil {
			identifier = fmt.Sprintf("user_%v", username)
		}

		if !limiter.Allow(identifier) {
			sm.logger.SecurityEvent(security.EventRateLimitExceeded, nil, "", c.IP(), c.Get("User-Agent"),
				map[string]interface{}{
					"endpoint":   endpointName,
					"identifier": identifier,
				})

			c.Set("Retry-After", "60")
			return c.Status(fiber.StatusTooManyRequests).
				SendString("Rate limit exceeded, please try again later")
		}

		return c.Next()
	}
}

// RequestLogger logs every HTTP request, with a security event for denials.
func (sm *SecurityMiddleware) RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)

		sm.logger.HTTPRequest(
			c.Method(),
			c.Path(),
			c.Response().StatusCode(),
			latency.Milliseconds(),
			c.IP(),
			c.Get("User-Agent"),
		)

		if c.Response().StatusCode() == fiber.StatusForbidden {
			var actorName string
			if username := c.Locals("username"); username != nil {
				actorName, _ = username.(string)
			}

			sm.logger.SecurityEvent(security.EventPermissionDenied, nil, actorName, c.IP(), c.Get("User-Agent"),
				map[string]interface{}{
					"method": c.Method(),
					"path":   c.Path(),
					"status": c.Response().StatusCode(),
				})
		}

		return err
	}
}

// SecureHeaders adds the standard protective headers to every response.
func (sm *SecurityMiddleware) SecureHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The map page loads the Google Maps JS API, so script-src and
		// connect-src allow those hosts.
		c.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://maps.googleapis.com; style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; img-src 'self' data: https://*.googleapis.com https://*.gstatic.com; font-src 'self' https://fonts.gstatic.com; connect-src 'self' https://maps.googleapis.com; frame-ancestors 'none'")

		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		return c.Next()
	}
}

// generateCSRFToken generates a cryptographically secure random token.
func generateCSRFToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return base64.URLEncoding.EncodeToString([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	}
	return base64.URLEncoding.EncodeToString(bytes)
}
