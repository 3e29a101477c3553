// Package email provides email sending capabilities via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendHTMLEmail sends an HTML email
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-ideasportal"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// ReviewOutcomeData holds data for the submitter-facing status email.
type ReviewOutcomeData struct {
	AppName    string
	UserName   string
	IdeaNumber string
	Subject    string
	Message    string
	IdeaURL    string
}

// PendingReviewData holds data for the reviewer queue email.
type PendingReviewData struct {
	AppName    string
	IdeaNumber string
	Subject    string
	Stage      string
	IdeaURL    string
}

// SendReviewOutcomeEmail tells a submitter what happened to their idea.
func (s *Service) SendReviewOutcomeEmail(to, userName, ideaNumber, ideaSubject, message, ideaURL string) error {
	data := ReviewOutcomeData{
		AppName:    "Ideas Portal",
		UserName:   userName,
		IdeaNumber: ideaNumber,
		Subject:    ideaSubject,
		Message:    message,
		IdeaURL:    ideaURL,
	}

	subject := fmt.Sprintf("Update on your idea %s", ideaNumber)
	html, err := renderTemplate(reviewOutcomeEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render review outcome template: %w", err)
	}

	return s.SendHTMLEmail([]string{to}, subject, html)
}

// SendPendingReviewEmail tells the reviewers of a stage that an idea awaits them.
func (s *Service) SendPendingReviewEmail(to []string, ideaNumber, ideaSubject, stage, ideaURL string) error {
	data := PendingReviewData{
		AppName:    "Ideas Portal",
		IdeaNumber: ideaNumber,
		Subject:    ideaSubject,
		Stage:      stage,
		IdeaURL:    ideaURL,
	}

	subject := fmt.Sprintf("Idea %s awaits your review", ideaNumber)
	html, err := renderTemplate(pendingReviewEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render pending review template: %w", err)
	}

	return s.SendHTMLEmail(to, subject, html)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reviewOutcomeEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Update on your idea</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .idea { background: #f5f7fa; padding: 12px; border-radius: 4px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Hi {{.UserName}},</h2>

    <p>{{.Message}}</p>

    <div class="idea">
        <strong>{{.IdeaNumber}}</strong> &mdash; {{.Subject}}
    </div>

    <p>
        <a href="{{.IdeaURL}}" class="button">View Idea</a>
    </p>

    <div class="footer">
        <p>You are receiving this because you submitted this idea on {{.AppName}}.</p>
    </div>
</body>
</html>`

const pendingReviewEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Idea awaiting review</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .idea { background: #f5f7fa; padding: 12px; border-radius: 4px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>An idea awaits your review</h2>

    <div class="idea">
        <strong>{{.IdeaNumber}}</strong> &mdash; {{.Subject}}<br>
        Stage: {{.Stage}}
    </div>

    <p>
        <a href="{{.IdeaURL}}" class="button">Review Idea</a>
    </p>

    <div class="footer">
        <p>You are receiving this because your role reviews ideas at the {{.Stage}} stage.</p>
    </div>
</body>
</html>`
