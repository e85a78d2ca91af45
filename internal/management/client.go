// Package management is ProxyPal's client for CLIProxyAPI's management API.
//
// The proxy exposes it under /v0/management, authenticated with the
// X-Management-Key header. ProxyPal writes the plaintext key into the
// generated proxy config, so every call here uses that same key.
package management

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

const requestTimeout = 10 * time.Second

// APIError is a non-2xx answer from the management API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("management API returned %d", e.Status)
	}
	return fmt.Sprintf("management API returned %d: %s", e.Status, e.Body)
}

// Client talks to a running proxy's management API.
type Client struct {
	base string
	key  string
	http *http.Client
}

// New returns a client for the proxy listening on the given port.
func New(port int) *Client {
	return &Client{
		base: fmt.Sprintf("http://127.0.0.1:%d/v0/management", port),
		key:  proxyconfig.ManagementKey,
		http: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+path, body)
	if err != nil {
		return nil, fmt.Errorf("could not build management request: %w", err)
	}
	req.Header.Set("X-Management-Key", c.key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach the proxy management API: %w", err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("could not encode management request: %w", err)
	}
	resp, err := c.do(ctx, method, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	return checkResponse(resp)
}

func (c *Client) putJSON(ctx context.Context, path string, body any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

// putValue sets one of the proxy's {"value": ...} runtime switches.
func (c *Client) putValue(ctx context.Context, path string, value any) error {
	return c.putJSON(ctx, path, map[string]any{"value": value})
}

func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	return checkResponse(resp)
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// listJSON fetches path and decodes the list wrapped under key. The proxy
// wraps lists in an object, may report null instead of an empty list, and
// answers some endpoints with a bare array. Non-2xx answers become an empty
// list: the management API serves partial state while the proxy warms up.
func listJSON[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read management response: %w", err)
	}
	return unwrapList[T](data, key)
}

func unwrapList[T any](data []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("could not parse management response: %w", err)
		}
		return out, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("could not parse management response: %w", err)
	}
	raw, ok := wrapper[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("could not parse %q in management response: %w", key, err)
	}
	return out, nil
}
