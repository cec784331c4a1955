package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"

	"go.uber.org/zap"
)

// Mailer sends transactional emails.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
}

// NewMailer returns an SMTP mailer, or one that only logs when no sender
// account is configured.
func NewMailer(host string, port int, username, password string, logger *zap.Logger) Mailer {
	if username == "" || password == "" {
		return &logMailer{logger: logger}
	}
	return &SMTPMailer{host: host, port: port, username: username, password: password}
}

func (s *SMTPMailer) SendEmail(_ context.Context, to, subject, body string) error {
	addr := s.host + ":" + strconv.Itoa(s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	msg := []byte(
		"From: " + s.username + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, s.username, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

type logMailer struct {
	logger *zap.Logger
}

func (m *logMailer) SendEmail(_ context.Context, to, subject, _ string) error {
	m.logger.Info("Email not sent, no SMTP account configured",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

const certificateRefusedSubject = "Refus de votre certificat"

var certificateRefusedTemplate = template.Must(template.New("certificate_refused").Parse(
	`<p>Bonjour {{.FirstName}},</p>
<p>Votre certificat médical a été refusé pour la raison suivante :</p>
<blockquote>{{.Reason}}</blockquote>
<p>Vous pouvez en déposer un nouveau depuis <a href="{{.URL}}">votre espace</a>.</p>`))

func renderCertificateRefused(firstName, reason, url string) (string, error) {
	var buf bytes.Buffer
	err := certificateRefusedTemplate.Execute(&buf, struct {
		FirstName string
		Reason    string
		URL       string
	}{firstName, reason, url})
	return buf.String(), err
}

const adminInvitationSubject = "Invitation à rejoindre Overun"

var adminInvitationTemplate = template.Must(template.New("admin_invitation").Parse(
	`<p>Bonjour,</p>
<p>Vous êtes invité(e) à rejoindre l'équipe d'administration d'Overun.</p>
{{if .ExistingAccount}}<p>Votre compte existant recevra les droits d'administration.</p>
{{else}}<p>Vous choisirez votre identifiant et votre mot de passe en acceptant l'invitation.</p>
{{end}}<p><a href="{{.URL}}">Accepter l'invitation</a></p>`))

func renderAdminInvitation(url string, existingAccount bool) (string, error) {
	var buf bytes.Buffer
	err := adminInvitationTemplate.Execute(&buf, struct {
		URL             string
		ExistingAccount bool
	}{url, existingAccount})
	return buf.String(), err
}
