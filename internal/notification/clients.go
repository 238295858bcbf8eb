package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// EmailClient talks to the transactional email gateway.
type EmailClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewEmailClient(baseURL string, client *http.Client) *EmailClient {
	return &EmailClient{baseURL: baseURL, httpClient: client}
}

func (c *EmailClient) Send(ctx context.Context, to, subject, body string) error {
	payload := map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	return postJSON(ctx, c.httpClient, c.baseURL+"/send", payload)
}

// WhatsAppClient talks to the WhatsApp message gateway.
type WhatsAppClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewWhatsAppClient(baseURL string, client *http.Client) *WhatsAppClient {
	return &WhatsAppClient{baseURL: baseURL, httpClient: client}
}

func (c *WhatsAppClient) Send(ctx context.Context, phone, message string) error {
	payload := map[string]string{
		"to":      phone,
		"message": message,
	}
	return postJSON(ctx, c.httpClient, c.baseURL+"/messages", payload)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway %s returned status %d", url, resp.StatusCode)
	}

	return nil
}
