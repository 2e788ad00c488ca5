package assistantapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the assistant backend's REST API. The websocket
// transport covers the conversation itself; this client only covers the
// session fallback path.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type createSessionResp struct {
	Data struct {
		ID string `json:"id"`
		// older backend builds use this key instead
		SessionID string `json:"sessionId"`
	} `json:"data"`
}

// CreateSession asks the backend for a new session id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	if c.HTTPClient == nil {
		return "", errors.New("assistantapi: http client is nil")
	}

	url := fmt.Sprintf("%s/api/sessions", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("assistantapi: status %d", resp.StatusCode)
	}

	var decoded createSessionResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}

	id := decoded.Data.ID
	if id == "" {
		id = decoded.Data.SessionID
	}
	if id == "" {
		return "", errors.New("assistantapi: response missing session id")
	}
	return id, nil
}
