// Package security provides input validation functionality.
// All validation methods return descriptive errors that are safe to show to users.
package security

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// usernamePattern restricts usernames to a URL- and SQL-safe shape.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// guidPattern matches the 32-hex external identifiers.
var guidPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// ValidationService provides centralized input validation functions.
type ValidationService struct {
	config *SecurityConfig
}

// NewValidationService creates a new validation service with security configuration.
func NewValidationService(config *SecurityConfig) *ValidationService {
	return &ValidationService{
		config: config,
	}
}

// ValidateUsername validates a login name.
// Requirements: 3-64 characters, letters/digits/underscore/dot/hyphen only.
func (v *ValidationService) ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if utf8.RuneCountInString(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}

	if len(username) > v.config.MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", v.config.MaxUsernameLength)
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits, '.', '-' and '_'")
	}

	return nil
}

// ValidateEmail validates email address format according to RFC 5322.
func (v *ValidationService) ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	if len(email) > v.config.MaxEmailLength {
		return fmt.Errorf("email must be less than %d characters", v.config.MaxEmailLength)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidatePassword validates password meets minimum requirements.
// Requirements: at least 8 characters, at most 128.
func (v *ValidationService) ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	if len(password) > 128 {
		return fmt.Errorf("password must be less than 128 characters")
	}

	return nil
}

// ValidatePersonName validates a first or last name.
func (v *ValidationService) ValidatePersonName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}

	if utf8.RuneCountInString(name) > v.config.MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", v.config.MaxNameLength)
	}

	return nil
}

// ValidateGroupName validates a group name.
func (v *ValidationService) ValidateGroupName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("group name is required")
	}

	if utf8.RuneCountInString(name) > v.config.MaxGroupNameLength {
		return fmt.Errorf("group name must be at most %d characters", v.config.MaxGroupNameLength)
	}

	return nil
}

// ValidateTitle validates a trip or location title.
func (v *ValidationService) ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}

	if utf8.RuneCountInString(title) > v.config.MaxTitleLength {
		return fmt.Errorf("title must be at most %d characters", v.config.MaxTitleLength)
	}

	return nil
}

// ValidateGUID validates an external 32-hex identifier.
func (v *ValidationService) ValidateGUID(guid string) error {
	if !guidPattern.MatchString(guid) {
		return fmt.Errorf("invalid identifier")
	}
	return nil
}

// ValidateLatitude checks a latitude is within [-90, 90].
func (v *ValidationService) ValidateLatitude(lat float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	return nil
}

// ValidateLongitude checks a longitude is within [-180, 180].
func (v *ValidationService) ValidateLongitude(lng float64) error {
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateURL validates an optional location website URL.
// Empty input is accepted; anything else must be absolute http(s).
func (v *ValidationService) ValidateURL(raw string) error {
	if raw == "" {
		return nil
	}

	if len(raw) > v.config.MaxURLLength {
		return fmt.Errorf("url must be at most %d characters", v.config.MaxURLLength)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("url must be an absolute http or https address")
	}

	return nil
}

// ValidateDate validates an optional form date in YYYY-MM-DD format.
func (v *ValidationService) ValidateDate(dateStr string) error {
	if dateStr == "" {
		return nil
	}

	if _, err := time.Parse("2006-01-02", dateStr); err != nil {
		return fmt.Errorf("date must be in YYYY-MM-DD format")
	}

	return nil
}

// ValidateDateRange validates both dates and that arrival does not fall
// after departure. Either side may be empty, but a non-empty side must parse
// even when the other is absent.
func (v *ValidationService) ValidateDateRange(arrival, departure string) error {
	if err := v.ValidateDate(arrival); err != nil {
		return fmt.Errorf("arrival date must be in YYYY-MM-DD format")
	}
	if err := v.ValidateDate(departure); err != nil {
		return fmt.Errorf("departure date must be in YYYY-MM-DD format")
	}

	if arrival == "" || departure == "" {
		return nil
	}

	start, _ := time.Parse("2006-01-02", arrival)
	end, _ := time.Parse("2006-01-02", departure)

	if start.After(end) {
		return fmt.Errorf("arrival date must not be after departure date")
	}

	return nil
}
