package notify

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
)

const (
	resetSubject   = "Password Reset Request"
	welcomeSubject = "Welcome to NeoBazaar"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Password Reset Request</h2>
  <p>You requested a password reset. Click the link below to reset your password:</p>
  <p><a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: #fff; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
  <p>This link will expire in 1 hour.</p>
  <p>If you didn't request this, please ignore this email.</p>
</div>`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome to NeoBazaar, {{.Name}}!</h2>
  <p>Thank you for joining us. We're excited to have you on board.</p>
</div>`))

// ResetLink builds the frontend URL carrying the reset token.
func ResetLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func renderReset(to, link string) (Message, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, struct{ Link string }{link}); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: resetSubject, HTML: buf.String()}, nil
}

func renderWelcome(to, name string) (Message, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, struct{ Name string }{name}); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: welcomeSubject, HTML: buf.String()}, nil
}
