// Package chatapi implements the chat.Adapter surface against the platform's
// REST API. It covers exactly the calls the session engine needs: private
// thread lifecycle and message posting with interactive components.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pennantware/warbot/pkg/chat"
)

const (
	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 15 * time.Second

	// privateThreadType is the platform's channel type for private threads.
	privateThreadType = 12

	// maxErrorBodyBytes limits how much of an error response is logged.
	maxErrorBodyBytes = 1024
)

// Config configures the REST client.
type Config struct {
	// BaseURL is the API root, e.g. "https://chat.example.com/api/v10".
	BaseURL string

	// BotToken authenticates every request.
	BotToken string

	// Timeout bounds a single request; DefaultTimeout when zero.
	Timeout time.Duration
}

// Client is the REST implementation of chat.Adapter.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a REST chat client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("chatapi: BaseURL is required")
	}
	if cfg.BotToken == "" {
		return nil, errors.New("chatapi: BotToken is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.BotToken,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// CreateThread creates a private thread under the parent channel.
func (c *Client) CreateThread(ctx context.Context, parentChannelID, title string) (string, error) {
	body := map[string]any{
		"name": title,
		"type": privateThreadType,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/channels/%s/threads", parentChannelID), body, &resp); err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("chatapi: thread response carried no id")
	}
	return resp.ID, nil
}

// AddMember invites a user into a thread.
func (c *Client) AddMember(ctx context.Context, channelID, userID string) error {
	err := c.do(ctx, http.MethodPut,
		fmt.Sprintf("/channels/%s/thread-members/%s", channelID, userID), nil, nil)
	if err != nil {
		return fmt.Errorf("adding thread member: %w", err)
	}
	return nil
}

// LockAndArchive closes a thread for further activity.
func (c *Client) LockAndArchive(ctx context.Context, channelID string) error {
	body := map[string]any{
		"locked":   true,
		"archived": true,
	}
	if err := c.do(ctx, http.MethodPatch,
		fmt.Sprintf("/channels/%s", channelID), body, nil); err != nil {
		return fmt.Errorf("archiving thread: %w", err)
	}
	return nil
}

// Post sends a message to a channel.
func (c *Client) Post(ctx context.Context, channelID string, msg chat.Message) (chat.MessageRef, error) {
	var resp struct {
		ID        string `json:"id"`
		ChannelID string `json:"channel_id"`
	}
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/channels/%s/messages", channelID), encodeMessage(msg), &resp)
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("posting message: %w", err)
	}

	ref := chat.MessageRef{ChannelID: resp.ChannelID, MessageID: resp.ID}
	if ref.ChannelID == "" {
		ref.ChannelID = channelID
	}
	return ref, nil
}

// StripComponents removes the interactive components from a posted message.
func (c *Client) StripComponents(ctx context.Context, ref chat.MessageRef) error {
	body := map[string]any{
		"components": []any{},
	}
	err := c.do(ctx, http.MethodPatch,
		fmt.Sprintf("/channels/%s/messages/%s", ref.ChannelID, ref.MessageID), body, nil)
	if err != nil {
		return fmt.Errorf("stripping components: %w", err)
	}
	return nil
}

// do issues one authenticated JSON request. A nil out skips body decoding.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("chatapi: %s %s returned %d: %s", method, path, resp.StatusCode, string(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

var _ chat.Adapter = (*Client)(nil)
