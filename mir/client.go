package mir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client talks to the MiR fleet REST API. Requests are made through a Conn,
// which carries the authorization token for one operation.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string
	Proxy    string
	Timeout  time.Duration
}

func NewClient(opts Options) (*Client, error) {
	httpClient, err := newHTTPClient(opts.Proxy, opts.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    withSlash(opts.BaseURL),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: httpClient,
	}, nil
}

func newHTTPClient(proxy string, timeout time.Duration) (*http.Client, error) {
	hc := &http.Client{Timeout: timeout}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("mir proxy %q: %w", proxy, err)
		}
		hc.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	return hc, nil
}

func withSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Reconfigure swaps endpoint and credentials for hot-reload.
func (c *Client) Reconfigure(opts Options) error {
	httpClient, err := newHTTPClient(opts.Proxy, opts.Timeout)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = withSlash(opts.BaseURL)
	c.username = opts.Username
	c.password = opts.Password
	c.httpClient = httpClient
	return nil
}

// Login hashes the configured credentials once and returns a Conn that
// reuses the token for every call it makes.
func (c *Client) Login() *Conn {
	c.mu.RLock()
	token := AuthToken(c.username, c.password)
	c.mu.RUnlock()
	return c.Authorize(token)
}

// Authorize binds an already computed token.
func (c *Client) Authorize(token string) *Conn {
	return &Conn{client: c, token: token}
}

// Conn is a Client bound to one authorization token.
type Conn struct {
	client *Client
	token  string
}

func (c *Conn) get(ctx context.Context, path string, result any) error {
	return c.client.do(ctx, c.token, http.MethodGet, path, nil, result)
}

func (c *Conn) post(ctx context.Context, path string, body, result any) error {
	return c.client.do(ctx, c.token, http.MethodPost, path, body, result)
}

func (c *Conn) delete(ctx context.Context, path string) error {
	return c.client.do(ctx, c.token, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, token, method, path string, body, result any) error {
	c.mu.RLock()
	base, hc := c.baseURL, c.httpClient
	c.mu.RUnlock()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mir marshal %s: %w", path, err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, bodyReader)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Authorization", "Basic "+token)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept-Language", "en_US")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if result == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &ParseError{Path: path, Err: errEmptyBody}
	}
	if err := json.Unmarshal(data, result); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}
