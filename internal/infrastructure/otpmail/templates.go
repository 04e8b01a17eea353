// Package otpmail renders the one-time-code emails sent by the direct
// delivery channels (SMTP and MailerSend).
package otpmail

import (
	"fmt"
	"html"
	"time"

	"github.com/neuroscan-api/internal/domain"
)

// Message is a rendered email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px;">
  <h2 style="color: #4a4a4a; text-align: center;">%s</h2>
  <p style="color: #666; line-height: 1.5;">%s</p>
  <div style="background-color: #f5f5f5; padding: 15px; text-align: center; border-radius: 4px; margin: 20px 0;">
    <h1 style="color: %s; letter-spacing: 5px; margin: 0;">%s</h1>
  </div>
  <p style="color: #666; line-height: 1.5;">This code will expire in %s. %s</p>
  <div style="margin-top: 40px; text-align: center; color: #999; font-size: 12px;">
    <p>&copy; %d Brain Tumor Detection. All rights reserved.</p>
  </div>
</div>`

// Render builds the email for code. ttl is shown to the recipient.
func Render(code string, purpose domain.Purpose, ttl time.Duration) Message {
	expiry := humanize(ttl)
	year := time.Now().Year()
	code = html.EscapeString(code)

	if purpose == domain.PurposeReset {
		return Message{
			Subject: "Reset Your Brain Tumor Detection Password",
			Text:    fmt.Sprintf("Your password reset code is %s. It expires in %s.", code, expiry),
			HTML: fmt.Sprintf(layout,
				"Password Reset Request",
				"You recently requested to reset your password for your Brain Tumor Detection account. Use the following OTP code to reset your password:",
				"#f44336", code, expiry,
				"If you did not request a password reset, please ignore this email or contact support if you have concerns.",
				year),
		}
	}
	return Message{
		Subject: "Verify Your Brain Tumor Detection Account",
		Text:    fmt.Sprintf("Your verification code is %s. It expires in %s.", code, expiry),
		HTML: fmt.Sprintf(layout,
			"Welcome to Brain Tumor Detection",
			"Thank you for registering with our Brain Tumor Detection platform. To complete your registration, please use the following OTP code:",
			"#3f51b5", code, expiry,
			"Please do not share this code with anyone. If you did not request this code, please ignore this email.",
			year),
	}
}

func humanize(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	switch {
	case m <= 0:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	case m == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", m)
	}
}
