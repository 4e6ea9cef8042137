package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wandergram/wanderchat/internal/conversation"
	"go.uber.org/zap"
)

// ErrUnauthenticated is returned when the backend rejects the bearer token.
var ErrUnauthenticated = errors.New("backend rejected the auth token")

// Client talks to the Wandergram REST backend. All requests carry the bearer
// token from the access-token factory; the token never appears in URLs.
type Client struct {
	baseURL string
	token   func() string
	hc      *http.Client
	logger  *zap.Logger
}

// NewClient creates a REST client for the given base URL. token is called per
// request so a refreshed credential is picked up without rebuilding the
// client.
func NewClient(baseURL string, token func() string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Me resolves the current user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// MessagingContacts fetches the consolidated messaging-contacts list.
func (c *Client) MessagingContacts(ctx context.Context) ([]ContactRecord, error) {
	return c.contactList(ctx, "/Followers/messaging-contacts")
}

// Following fetches the accounts the current user follows.
func (c *Client) Following(ctx context.Context) ([]ContactRecord, error) {
	return c.contactList(ctx, "/Followers/following")
}

// Followers fetches the accounts following the current user.
func (c *Client) Followers(ctx context.Context) ([]ContactRecord, error) {
	return c.contactList(ctx, "/Followers/followers")
}

// Senders fetches accounts with pending messages to the current user.
func (c *Client) Senders(ctx context.Context) ([]ContactRecord, error) {
	return c.contactList(ctx, "/Followers/senders")
}

// Conversation fetches the full message history with one contact, in
// server-returned order.
func (c *Client) Conversation(ctx context.Context, contactID string) ([]conversation.Message, error) {
	var records []MessageRecord
	if err := c.get(ctx, "/Messages/conversation/"+url.PathEscape(contactID), &records); err != nil {
		return nil, err
	}
	msgs := make([]conversation.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, r.ToMessage())
	}
	return msgs, nil
}

func (c *Client) contactList(ctx context.Context, path string) ([]ContactRecord, error) {
	var records []ContactRecord
	if err := c.get(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
