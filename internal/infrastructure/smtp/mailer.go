package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/neuroscan-api/internal/config"
	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/infrastructure/otpmail"
)

// Mailer sends HTML emails.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	fromName string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.MailFromEmail,
		fromName: cfg.MailFromName,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *mailer) SendEmail(to, subject, htmlBody string) error {
	msg := buildMessage(m.fromName, m.from, to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return m.send(addr, auth, m.from, []string{to}, msg)
}

func buildMessage(fromName, from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	if fromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, from)
	} else {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// OTPSender delivers one-time codes straight over SMTP.
type OTPSender struct {
	mailer Mailer
	ttl    time.Duration
}

func NewOTPSender(m Mailer, ttl time.Duration) *OTPSender {
	return &OTPSender{mailer: m, ttl: ttl}
}

// SendOTP gives up when ctx ends; net/smtp itself has no cancellation, so the
// dial may finish in the background.
func (s *OTPSender) SendOTP(ctx context.Context, email, code string, purpose domain.Purpose) error {
	msg := otpmail.Render(code, purpose, s.ttl)
	done := make(chan error, 1)
	go func() { done <- s.mailer.SendEmail(email, msg.Subject, msg.HTML) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}
