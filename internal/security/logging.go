// Package security provides structured JSON logging of security-relevant
// events: authentication outcomes, verification flow, permission denials,
// and data mutations on groups, trips, and locations.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel identifies the severity of a log entry.
type LogLevel string

const (
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
	LogLevelSecurity LogLevel = "SECURITY"
)

// SecurityEventType identifies a class of security event.
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "login_success"
	EventLoginFailure       SecurityEventType = "login_failure"
	EventLoginUnverified    SecurityEventType = "login_unverified"
	EventLogout             SecurityEventType = "logout"
	EventAccountLocked      SecurityEventType = "account_locked"
	EventUserRegister       SecurityEventType = "user_register"
	EventPasswordChange     SecurityEventType = "password_change"
	EventVerificationSent   SecurityEventType = "verification_sent"
	EventVerificationDone   SecurityEventType = "verification_completed"
	EventPermissionDenied   SecurityEventType = "permission_denied"
	EventGroupCreate        SecurityEventType = "group_create"
	EventGroupDelete        SecurityEventType = "group_delete"
	EventGroupMemberAdd     SecurityEventType = "group_member_add"
	EventTripCreate         SecurityEventType = "trip_create"
	EventTripDelete         SecurityEventType = "trip_delete"
	EventLocationAdd        SecurityEventType = "location_add"
	EventLocationDelete     SecurityEventType = "location_delete"
	EventLocationReorder    SecurityEventType = "location_reorder"
	EventRateLimitExceeded  SecurityEventType = "rate_limit_exceeded"
	EventCSRFViolation      SecurityEventType = "csrf_violation"
	EventUnauthorizedAccess SecurityEventType = "unauthorized_access"
)

// LogEntry is the JSON shape of every log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`

	// Security event fields
	EventType  SecurityEventType      `json:"event_type,omitempty"`
	ActorID    *int                   `json:"actor_id,omitempty"`
	ActorName  string                 `json:"actor_name,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`

	// HTTP request fields
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	Status    int    `json:"status,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

// Logger writes JSON log entries to a destination, one object per line.
type Logger struct {
	output *log.Logger
}

// NewLogger creates a logger writing to stdout.
func NewLogger() *Logger {
	return &Logger{
		output: log.New(os.Stdout, "", 0),
	}
}

// write serializes and emits one entry. Serialization failure falls back to
// the plain message so the event is never dropped entirely.
func (l *Logger) write(entry LogEntry) {
	entry.Timestamp = time.Now().UTC()

	data, err := json.Marshal(entry)
	if err != nil {
		l.output.Printf(`{"level":"ERROR","message":"log marshal failed: %s"}`, entry.Message)
		return
	}

	l.output.Println(string(data))
}

// Info logs an informational message.
func (l *Logger) Info(message string) {
	l.write(LogEntry{Level: LogLevelInfo, Message: message})
}

// Warn logs a warning message.
func (l *Logger) Warn(message string) {
	l.write(LogEntry{Level: LogLevelWarning, Message: message})
}

// Error logs an error with an optional underlying cause.
func (l *Logger) Error(message string, err error) {
	entry := LogEntry{Level: LogLevelError, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// Critical logs a failure that requires operator attention.
func (l *Logger) Critical(message string, err error) {
	entry := LogEntry{Level: LogLevelCritical, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// SecurityEvent logs a structured security event.
//
// Parameters:
//   - eventType: Event class (login_success, permission_denied, ...)
//   - actorID: Internal user id when known, nil otherwise
//   - actorName: Username when known
//   - ipAddress, userAgent: Request attribution
//   - extra: Free-form event context
func (l *Logger) SecurityEvent(eventType SecurityEventType, actorID *int, actorName, ipAddress, userAgent string, extra map[string]interface{}) {
	l.write(LogEntry{
		Level:     LogLevelSecurity,
		Message:   string(eventType),
		EventType: eventType,
		ActorID:   actorID,
		ActorName: actorName,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Extra:     extra,
	})
}

// HTTPRequest logs one completed HTTP request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMS int64, ipAddress, userAgent string) {
	l.write(LogEntry{
		Level:     LogLevelInfo,
		Message:   fmt.Sprintf("%s %s -> %d (%dms)", method, path, status, latencyMS),
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMS: latencyMS,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// Alerter delivers out-of-band alerts for suspicious activity.
// Implementations may post to email, chat, or a SIEM.
type Alerter interface {
	SendAlert(ctx context.Context, severity, title, message string) error
}

// SecurityMonitor watches event streams for suspicious patterns and raises
// alerts through an Alerter.
type SecurityMonitor struct {
	logger  *Logger
	config  *SecurityConfig
	alerter Alerter

	mu           sync.Mutex
	failedLogins map[string]int // per source IP
	lastReset    time.Time
}

// NewSecurityMonitor creates a monitor. alerter may be nil, in which case
// threshold crossings are only logged.
func NewSecurityMonitor(logger *Logger, config *SecurityConfig, alerter Alerter) *SecurityMonitor {
	return &SecurityMonitor{
		logger:       logger,
		config:       config,
		alerter:      alerter,
		failedLogins: make(map[string]int),
		lastReset:    time.Now(),
	}
}

// MonitorLoginFailure records a failed login from an IP and alerts when the
// configured threshold is reached.
func (m *SecurityMonitor) MonitorLoginFailure(ipAddress string) {
	m.mu.Lock()
	m.failedLogins[ipAddress]++
	count := m.failedLogins[ipAddress]
	m.mu.Unlock()

	if count == m.config.AlertThresholdFailures {
		m.logger.SecurityEvent(EventAccountLocked, nil, "", ipAddress, "", map[string]interface{}{
			"failed_logins": count,
		})

		if m.alerter != nil {
			_ = m.alerter.SendAlert(context.Background(), "HIGH",
				"Repeated login failures",
				fmt.Sprintf("%d failed login attempts from %s", count, ipAddress))
		}
	}
}

// ResetCounters clears failure counters once an hour has passed since the
// previous reset. Callers may invoke it on any cadence.
func (m *SecurityMonitor) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastReset) < time.Hour {
		return
	}

	m.failedLogins = make(map[string]int)
	m.lastReset = time.Now()
}
