// Package mailersend delivers one-time codes through the MailerSend API.
package mailersend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/infrastructure/otpmail"
)

type messageSender interface {
	Send(ctx context.Context, message *mailersend.Message) (*mailersend.Response, error)
}

type Mailer struct {
	email   messageSender
	from    mailersend.From
	ttl     time.Duration
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string, ttl time.Duration) *Mailer {
	m := &Mailer{
		Enabled: apiKey != "" && fromEmail != "",
		from:    mailersend.From{Name: fromName, Email: fromEmail},
		ttl:     ttl,
	}
	if m.Enabled {
		m.email = mailersend.NewMailersend(apiKey).Email
	}
	return m
}

func (m *Mailer) SendOTP(ctx context.Context, email, code string, purpose domain.Purpose) error {
	if !m.Enabled {
		return errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAIL_FROM_EMAIL)")
	}
	rendered := otpmail.Render(code, purpose, m.ttl)

	msg := &mailersend.Message{}
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: email}})
	msg.SetSubject(rendered.Subject)
	msg.SetText(rendered.Text)
	msg.SetHTML(rendered.HTML)

	res, err := m.email.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mailersend: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
