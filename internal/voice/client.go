package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"receptionist-platform/internal/config"
)

// APIError is a non-2xx reply from the voice platform, with whatever
// human-readable message the platform included.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice platform: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the voice platform's control plane.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	timeout time.Duration
}

func NewClient(cfg config.VoiceConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{},
		timeout: cfg.RequestTimeout,
	}
}

// CreateAssistant registers an assistant with the platform and returns its id.
func (c *Client) CreateAssistant(ctx context.Context, req AssistantRequest) (CreatedAssistant, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return CreatedAssistant{}, fmt.Errorf("encode assistant request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assistant", bytes.NewReader(body))
	if err != nil {
		return CreatedAssistant{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(SignatureHeader, Sign(body, c.apiKey))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return CreatedAssistant{}, fmt.Errorf("create assistant: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CreatedAssistant{}, fmt.Errorf("read assistant response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CreatedAssistant{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(raw, resp.StatusCode),
		}
	}

	var created CreatedAssistant
	if err := json.Unmarshal(raw, &created); err != nil {
		return CreatedAssistant{}, fmt.Errorf("decode assistant response: %w", err)
	}
	if created.ID == "" {
		return CreatedAssistant{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "response missing assistant id",
		}
	}
	return created, nil
}

// extractErrorMessage prefers the platform's "message" field, then "error",
// then falls back to the status code.
func extractErrorMessage(raw []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("API Error: %d", status)
}
