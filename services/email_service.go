package services

import (
	"crypto/tls"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/config"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
)

// EmailService sends mail via SMTP
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	useTLS   bool
	notifyTo string
	log      zerolog.Logger
}

// NewEmailService creates a new email service from the SMTP_* settings
func NewEmailService(env *config.EnvironmentVariables) *EmailService {
	return &EmailService{
		host:     env.SMTP_HOST,
		port:     env.SMTP_PORT,
		username: env.SMTP_USERNAME,
		password: env.SMTP_PASSWORD,
		from:     env.SMTP_FROM,
		useTLS:   env.SMTP_USE_TLS,
		notifyTo: env.CONTACT_NOTIFY_EMAIL,
		log:      logger.WithComponent("email"),
	}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.host != "" && e.notifyTo != ""
}

// SendQuestionNotification tells the administrators about a new contact question
func (e *EmailService) SendQuestionNotification(q *model.Question) error {
	if !e.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}

	subject := fmt.Sprintf("[StudyHub] New question #%d: %s", q.ID, q.Subject)
	return e.sendEmail(e.notifyTo, q.Email, subject, buildQuestionEmailBody(q))
}

// buildQuestionEmailBody renders the question as escaped HTML
func buildQuestionEmailBody(q *model.Question) string {
	body := strings.ReplaceAll(html.EscapeString(q.Body), "\n", "<br>")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body>
  <h2>%s</h2>
  <p><strong>From:</strong> %s</p>
  <p><strong>Submitted:</strong> %s</p>
  <p>%s</p>
</body>
</html>`,
		html.EscapeString(q.Subject),
		html.EscapeString(q.Email),
		q.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
		body,
	)
}

// buildMessage assembles the RFC 5322 message. Header values are stripped of
// line breaks.
func buildMessage(from, to, replyTo, subject, htmlBody string) string {
	clean := strings.NewReplacer("\r", " ", "\n", " ")
	headers := [][2]string{
		{"From", fmt.Sprintf("StudyHub <%s>", from)},
		{"To", to},
		{"Subject", clean.Replace(subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	if replyTo != "" {
		headers = append(headers, [2]string{"Reply-To", clean.Replace(replyTo)})
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)
	return message.String()
}

// sendEmail sends an email using SMTP, upgrading with STARTTLS when enabled
func (e *EmailService) sendEmail(to, replyTo, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if e.useTLS {
		if err := conn.StartTLS(&tls.Config{ServerName: e.host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if e.username != "" {
		if err := conn.Auth(smtp.PlainAuth("", e.username, e.password, e.host)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(e.from, to, replyTo, subject, htmlBody))); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	e.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}
