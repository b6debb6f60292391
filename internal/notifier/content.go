package notifier

import (
	"fmt"
	"time"
)

const otpEmailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <div style="max-width: 600px; margin: 20px auto; padding: 20px; border: 1px solid #e5e7eb; border-radius: 8px;">
    <h2>Your Notes sign-in code</h2>
    <p>Use the following one-time code to continue:</p>
    <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">%s</p>
    <p>This code will expire in %d minutes.</p>
  </div>
</body>
</html>`

// Content renders the subject and bodies of an OTP email.
type Content struct {
	Subject string
	ttl     time.Duration
}

func NewContent(ttl time.Duration) Content {
	return Content{
		Subject: "Your OTP Code",
		ttl:     ttl,
	}
}

func (c Content) minutes() int {
	m := int(c.ttl / time.Minute)
	if m <= 0 {
		m = 10
	}
	return m
}

func (c Content) Text(code string) string {
	return fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", code, c.minutes())
}

func (c Content) HTML(code string) string {
	return fmt.Sprintf(otpEmailHTML, code, c.minutes())
}
