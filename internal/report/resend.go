package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultResendURL = "https://api.resend.com/emails"

// ResendMailer sends report emails through the Resend REST API.
type ResendMailer struct {
	apiKey     string
	from       string
	to         string
	baseURL    string
	httpClient *http.Client
}

func NewResendMailer(apiKey, from, to string) *ResendMailer {
	return &ResendMailer{
		apiKey:     apiKey,
		from:       from,
		to:         to,
		baseURL:    defaultResendURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewResendMailerWithURL is used by tests to point at a local server.
func NewResendMailerWithURL(apiKey, from, to, baseURL string) *ResendMailer {
	m := NewResendMailer(apiKey, from, to)
	m.baseURL = baseURL
	return m
}

func (m *ResendMailer) Send(ctx context.Context, subject, html string) error {
	payload, err := json.Marshal(map[string]any{
		"from":    m.from,
		"to":      []string{m.to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
