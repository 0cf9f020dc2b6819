package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/model"
)

// Client speaks the flat-file chat log service, the fallback
// transport when tabs cannot share a profile store.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns up to 100 recent messages for the room. The service
// synthesizes a welcome message for empty rooms, so the result is
// never empty on success.
func (c *Client) Fetch(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	u := fmt.Sprintf("%s/api/chat?roomId=%s", c.baseURL, url.QueryEscape(roomID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("chat: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Upstream("chat log", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Upstream("chat log", fmt.Errorf("status %d", resp.StatusCode))
	}

	var msgs []model.ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("chat: decoding messages: %w", err)
	}
	return msgs, nil
}

// Post appends a message to the room log and returns the updated list.
func (c *Client) Post(ctx context.Context, roomID string, msg model.ChatMessage) ([]model.ChatMessage, error) {
	body, err := json.Marshal(map[string]any{"roomId": roomID, "message": msg})
	if err != nil {
		return nil, fmt.Errorf("chat: encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Upstream("chat log", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Upstream("chat log", fmt.Errorf("status %d", resp.StatusCode))
	}

	var msgs []model.ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("chat: decoding messages: %w", err)
	}
	return msgs, nil
}
