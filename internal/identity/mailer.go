package identity

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey   string
	from     string
	fromName string
}

func NewSendGridMailer(apiKey, from, fromName string) *SendGridMailer {
	return &SendGridMailer{apiKey: apiKey, from: from, fromName: fromName}
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(mail.NewEmail(m.fromName, m.from), subject, mail.NewEmail("", to), body, "")
	client := sendgrid.NewSendClient(m.apiKey)

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

// SMTPMailer sends with PLAIN auth.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.from, to, subject, body)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer only logs. Used when no provider is configured.
type LogMailer struct{}

func NewLogMailer() LogMailer {
	return LogMailer{}
}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("mailer disabled: to=%s subject=%q", to, subject)
	return nil
}
