// Package security provides tests for the input validation service.
package security

import (
	"strings"
	"testing"
)

func newTestValidator() *ValidationService {
	return NewValidationService(DefaultSecurityConfig())
}

func TestValidateUsername(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid simple", "traveler42", false},
		{"valid with separators", "jo.hn_do-e", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 65), true},
		{"spaces", "john doe", true},
		{"sql metacharacters", "john';--", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "dummy@parityerror.com", false},
		{"valid with name", "Dum My <dummy@parityerror.com>", false},
		{"empty", "", true},
		{"missing domain", "dummy@", true},
		{"no at sign", "dummy.parityerror.com", true},
		{"too long", strings.Repeat("a", 126) + "@x.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidatePassword("longenough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}

	if err := v.ValidatePassword("short"); err == nil {
		t.Error("short password accepted")
	}

	if err := v.ValidatePassword(""); err == nil {
		t.Error("empty password accepted")
	}

	if err := v.ValidatePassword(strings.Repeat("x", 200)); err == nil {
		t.Error("oversized password accepted")
	}
}

func TestValidateCoordinates(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{"valid", 48.8566, 2.3522, false},
		{"boundary north pole", 90, 0, false},
		{"boundary date line", 0, -180, false},
		{"latitude too high", 90.1, 0, true},
		{"latitude too low", -91, 0, true},
		{"longitude too high", 0, 180.5, true},
		{"longitude too low", 0, -181, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateLatitude(tt.lat)
			if err == nil {
				err = v.ValidateLongitude(tt.lng)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("coordinates (%v, %v) error = %v, wantErr %v", tt.lat, tt.lng, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateURL(""); err != nil {
		t.Errorf("empty url should be accepted (optional field): %v", err)
	}

	if err := v.ValidateURL("https://example.com/hotel"); err != nil {
		t.Errorf("valid url rejected: %v", err)
	}

	if err := v.ValidateURL("ftp://example.com"); err == nil {
		t.Error("non-http scheme accepted")
	}

	if err := v.ValidateURL("not a url"); err == nil {
		t.Error("garbage url accepted")
	}
}

func TestValidateDateRange(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateDateRange("2026-06-01", "2026-06-10"); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}

	if err := v.ValidateDateRange("", "2026-06-10"); err != nil {
		t.Errorf("open-ended range rejected: %v", err)
	}

	if err := v.ValidateDateRange("2026-06-10", "2026-06-01"); err == nil {
		t.Error("inverted range accepted")
	}

	// A malformed date must be rejected even when the other side is empty;
	// otherwise the handler would silently drop it.
	if err := v.ValidateDateRange("not-a-date", ""); err == nil {
		t.Error("lone malformed arrival accepted")
	}

	if err := v.ValidateDateRange("", "not-a-date"); err == nil {
		t.Error("lone malformed departure accepted")
	}

	if err := v.ValidateDate("06/01/2026"); err == nil {
		t.Error("wrong date format accepted")
	}
}

func TestValidateGUID(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateGUID(NewGUID()); err != nil {
		t.Errorf("generated guid rejected: %v", err)
	}

	for _, bad := range []string{"", "xyz", strings.Repeat("g", 32), strings.Repeat("a", 31)} {
		if err := v.ValidateGUID(bad); err == nil {
			t.Errorf("invalid guid %q accepted", bad)
		}
	}
}
