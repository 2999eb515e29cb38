package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Relay delivers one templated message.
type Relay interface {
	Send(ctx context.Context, serviceID, templateID string, vars map[string]string) error
}

// DefaultEmailJSEndpoint is the EmailJS REST send endpoint.
const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJS sends through the EmailJS REST API.
type EmailJS struct {
	Endpoint   string
	PublicKey  string
	PrivateKey string // optional; sent as accessToken when set
	Client     *http.Client
}

// NewEmailJS returns a client for the given account keys.
func NewEmailJS(publicKey, privateKey string, timeout time.Duration) *EmailJS {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmailJS{
		Endpoint:   DefaultEmailJSEndpoint,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Client:     &http.Client{Timeout: timeout},
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// Send posts one message. Any non-2xx answer is an error carrying the
// response body, which EmailJS uses for its error text.
func (e *EmailJS) Send(ctx context.Context, serviceID, templateID string, vars map[string]string) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      serviceID,
		TemplateID:     templateID,
		UserID:         e.PublicKey,
		AccessToken:    e.PrivateKey,
		TemplateParams: vars,
	})
	if err != nil {
		return fmt.Errorf("encode emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("emailjs send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
