// Package config loads the application configuration from the environment.
// Every setting has a development-friendly default except DATABASE_URL and
// the SMTP credentials, which have no sensible fallback.
package config

import (
	"fmt"
	"os"
)

// Mail transport selection values for MAIL_TRANSPORT.
const (
	TransportSMTP     = "smtp"
	TransportSendmail = "sendmail"
)

// Config holds the process configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string. Required.
	DatabaseURL string
	// Port the HTTP server listens on.
	Port string
	// BaseURL is the externally reachable site root used in emailed links.
	BaseURL string
	// Env is "production" or a development value; template reload and cookie
	// strictness key off it.
	Env string

	// MailTransport selects smtp or sendmail delivery.
	MailTransport string
	// SMTPAddr is the relay host:port for the smtp transport.
	SMTPAddr string
	SMTPUser string
	SMTPPass string
	// SendmailPath is the binary used by the sendmail transport.
	SendmailPath string
	// ApplicationEmail is the From address on outgoing mail.
	ApplicationEmail string

	// MapsAPIKey is embedded in the trip map page.
	MapsAPIKey string
}

// getenv returns the environment value or a default when unset.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration from the environment.
//
// Returns:
//   - error: When DATABASE_URL is missing, or MAIL_TRANSPORT names an
//     unknown transport
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             getenv("PORT", "8080"),
		BaseURL:          getenv("BASE_URL", "http://localhost:8080"),
		Env:              getenv("ENV", "development"),
		MailTransport:    getenv("MAIL_TRANSPORT", TransportSMTP),
		SMTPAddr:         getenv("SMTP_ADDR", "smtp.gmail.com:587"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		SendmailPath:     getenv("SENDMAIL_PATH", "/usr/sbin/sendmail"),
		ApplicationEmail: getenv("APPLICATION_EMAIL", "noreply@traveltogether.example"),
		MapsAPIKey:       os.Getenv("MAPS_API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.MailTransport {
	case TransportSMTP, TransportSendmail:
	default:
		return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q (want %s or %s)",
			cfg.MailTransport, TransportSMTP, TransportSendmail)
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
