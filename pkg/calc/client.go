package calc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single calculation request.
	DefaultTimeout = 30 * time.Second

	// maxErrorBodyBytes limits how much of an error response is kept for
	// logging and Error.Detail.
	maxErrorBodyBytes = 2048
)

// Config configures the calculation client.
type Config struct {
	// URL is the backend endpoint. The "endpoint=calculate" query
	// parameter is appended at request time.
	URL string

	// BasicID and BasicPass enable HTTP basic auth when both are set.
	BasicID   string
	BasicPass string

	// Timeout bounds a single request; DefaultTimeout when zero.
	Timeout time.Duration
}

// Client calls the WAR calculation backend.
type Client struct {
	url       string
	basicID   string
	basicPass string
	http      *http.Client
}

// NewClient creates a calculation client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("calc: URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("calc: invalid URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		url:       cfg.URL,
		basicID:   cfg.BasicID,
		basicPass: cfg.BasicPass,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Calculate posts the record and returns the structured result.
// Failures are returned as *Error with a kind the engine can branch on.
func (c *Client) Calculate(ctx context.Context, record Record) (*Result, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("calc: encoding record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("calc: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.basicID != "" && c.basicPass != "" {
		req.SetBasicAuth(c.basicID, c.basicPass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		slog.Error("calc: backend returned error status",
			"status", resp.StatusCode, "body", string(detail))
		return nil, &Error{
			Kind:   KindRemote,
			Status: resp.StatusCode,
			Detail: string(detail),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Detail: "reading response body", Err: err}
	}

	result, err := parseResult(raw)
	if err != nil {
		return nil, &Error{Kind: KindRemote, Status: resp.StatusCode, Detail: err.Error(), Err: err}
	}
	return result, nil
}

// endpoint appends the calculate endpoint selector, honoring URLs that
// already carry query parameters.
func (c *Client) endpoint() string {
	sep := "?"
	if strings.Contains(c.url, "?") {
		sep = "&"
	}
	return c.url + sep + "endpoint=calculate"
}

func classifyTransport(err error) *Error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &Error{Kind: KindTimeout, Detail: "request deadline exceeded", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Detail: "request deadline exceeded", Err: err}
	}
	return &Error{Kind: KindTransport, Detail: err.Error(), Err: err}
}

// Calculator is the call surface the engine consumes; satisfied by *Client.
type Calculator interface {
	Calculate(ctx context.Context, record Record) (*Result, error)
}

var _ Calculator = (*Client)(nil)
