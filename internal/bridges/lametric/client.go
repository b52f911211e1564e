package lametric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/config"
)

// Device client defaults.
const (
	defaultDevicePort    = 8080
	defaultDeviceUser    = "dev"
	defaultDeviceTimeout = 10 * time.Second

	// maxErrorBody caps how much of a failed response is kept in the error.
	maxErrorBody = 512
)

// Client issues requests against the LaMetric local REST API.
//
// Each call is a single HTTP request: there is no retry, no queue and no
// caching. When host or token is unset every call returns ErrDisabled
// without touching the network.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	username   string
	token      string
	enabled    bool
	httpClient *http.Client

	requestsSent atomic.Uint64
	failures     atomic.Uint64

	mu          sync.RWMutex
	lastSuccess time.Time
	lastErr     error
}

// ClientStats is a snapshot of the client's request counters.
type ClientStats struct {
	Enabled      bool      `json:"enabled"`
	RequestsSent uint64    `json:"requests_sent"`
	Failures     uint64    `json:"failures"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// NewClient creates a device client from the device configuration.
func NewClient(cfg config.DeviceConfig) *Client {
	port := cfg.Port
	if port <= 0 {
		port = defaultDevicePort
	}
	user := cfg.Username
	if user == "" {
		user = defaultDeviceUser
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultDeviceTimeout
	}

	return &Client{
		baseURL:  "http://" + cfg.Host + ":" + strconv.Itoa(port) + "/api/v2/",
		username: user,
		token:    cfg.Token,
		enabled:  cfg.Host != "" && cfg.Token != "",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether host and token are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Call performs one request against endpoint (relative to /api/v2/).
//
// payload is JSON-encoded into the body when non-nil. The raw response
// body is returned on 200 or 201; any other status yields
// ErrUnexpectedStatus carrying the status code and body.
func (c *Client) Call(ctx context.Context, endpoint, method string, payload any) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s payload: %w", method, endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, endpoint, err)
	}
	req.SetBasicAuth(c.username, c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.requestsSent.Add(1)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, endpoint, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(fmt.Errorf("%w: reading %s %s: %w", ErrRequestFailed, method, endpoint, err))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, c.fail(fmt.Errorf("%w: %s %s: status %d: %s",
			ErrUnexpectedStatus, method, endpoint, resp.StatusCode, bytes.TrimSpace(data)))
	}

	c.mu.Lock()
	c.lastSuccess = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	return json.RawMessage(data), nil
}

// Stats returns the request counters.
func (c *Client) Stats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := ClientStats{
		Enabled:      c.enabled,
		RequestsSent: c.requestsSent.Load(),
		Failures:     c.failures.Load(),
		LastSuccess:  c.lastSuccess,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

func (c *Client) fail(err error) error {
	c.failures.Add(1)
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	return err
}

// isDisabled reports whether err means the integration is switched off.
func isDisabled(err error) bool {
	return errors.Is(err, ErrDisabled)
}
