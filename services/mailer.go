package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// HTTPMailer posts messages to a transactional email API (Resend compatible).
type HTTPMailer struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPMailer(apiURL, apiKey string) *HTTPMailer {
	return &HTTPMailer{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type httpMailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *HTTPMailer) Send(ctx context.Context, email Email) error {
	payload, err := json.Marshal(httpMailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		return fmt.Errorf("error marshaling email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email API error (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
}

func NewSMTPMailer(host string, port int, username, password string) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30 * time.Second),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return &SMTPMailer{client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", email.From, err)
	}
	if err := msg.To(email.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.HTML)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}

// LogMailer only logs messages. Used in development.
type LogMailer struct {
	Log *logrus.Logger
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	m.Log.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
		"bytes":   len(email.HTML),
	}).Info("email not sent (log driver)")
	return nil
}
