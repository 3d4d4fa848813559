// Package mail sends application email over one of two interchangeable
// transports: authenticated SMTP or a local sendmail binary. Handlers and
// services depend only on the Mailer interface.
package mail

import (
	"fmt"
	"net/smtp"
	"os/exec"
	"strings"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(to, subject, body string) error
}

// formatMessage assembles the RFC 822 style message: headers, blank line,
// body. Both transports send the identical bytes.
func formatMessage(to, from, subject, body string) string {
	return fmt.Sprintf("Subject: %s\r\nTo: %s\r\nFrom: %s\r\n\r\n%s", subject, to, from, body)
}

// SMTPMailer sends through an authenticated SMTP relay. smtp.SendMail
// negotiates STARTTLS when the server offers it.
type SMTPMailer struct {
	Addr     string // host:port of the relay
	Username string
	Password string
	From     string
}

// NewSMTPMailer creates an SMTPMailer for the given relay and credentials.
func NewSMTPMailer(addr, username, password, from string) *SMTPMailer {
	return &SMTPMailer{Addr: addr, Username: username, Password: password, From: from}
}

// relayHost strips the port from a host:port relay address. PlainAuth wants
// the bare hostname.
func relayHost(addr string) string {
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}

// Send delivers one message through the relay.
func (m *SMTPMailer) Send(to, subject, body string) error {
	auth := smtp.PlainAuth("", m.Username, m.Password, relayHost(m.Addr))

	msg := formatMessage(to, m.From, subject, body)
	if err := smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}

// SendmailMailer pipes messages through a local sendmail binary, for hosts
// where outbound SMTP is unavailable but local delivery works.
type SendmailMailer struct {
	Path string // sendmail binary, typically /usr/sbin/sendmail
	From string
}

// NewSendmailMailer creates a SendmailMailer using the given binary path.
func NewSendmailMailer(path, from string) *SendmailMailer {
	return &SendmailMailer{Path: path, From: from}
}

// Send pipes one message to sendmail. The -t flag makes sendmail read the
// recipient from the To header rather than the command line.
func (m *SendmailMailer) Send(to, subject, body string) error {
	cmd := exec.Command(m.Path, "-t")
	cmd.Stdin = strings.NewReader(formatMessage(to, m.From, subject, body))

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("sendmail to %s failed: %w (%s)", to, err, strings.TrimSpace(string(out)))
	}
	return nil
}
