package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devmatehq/chatsync/api/pkg/system"
	"github.com/devmatehq/chatsync/api/pkg/types"
)

// ErrRoomNotAccessible is terminal: the room is gone or the caller was
// removed from it. Everything else the history API returns is treated as
// transient and safe to retry.
var ErrRoomNotAccessible = errors.New("room not accessible")

type Client interface {
	GetMessages(ctx context.Context, roomID int64, page, size int) (*types.MessagesPage, error)
	GetRoom(ctx context.Context, roomID int64) (*types.Room, error)
	ListRooms(ctx context.Context) ([]*types.Room, error)
}

// ChatClient is the client for the chat REST API.
type ChatClient struct {
	httpClient *http.Client
	apiKey     string
	url        string
}

type ClientOption func(*ChatClient)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *ChatClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(url, apiKey string, opts ...ClientOption) (*ChatClient, error) {
	if url == "" {
		return nil, errors.New("url is required")
	}
	url = strings.TrimSuffix(url, "/")
	if !strings.HasSuffix(url, "/api/v1") {
		url = url + "/api/v1"
	}

	c := &ChatClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		url:        url,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *ChatClient) makeRequest(ctx context.Context, method, path string, body io.Reader, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", system.GenerateUUID())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrRoomNotAccessible)
	}
	if resp.StatusCode != http.StatusOK {
		bts, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("status code %d", resp.StatusCode)
		}
		return fmt.Errorf("status code %d (%s)", resp.StatusCode, string(bts))
	}

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}
