// Package siteclient provides a typed wrapper over the site's HTTP GET
// and form-POST surface: fixed User-Agent, per-call Referer shaping, a
// byte cap on response bodies, and JSONP envelope stripping for the
// rank feeds.
package siteclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// maxBodyBytes bounds the amount of memory a single response can
	// occupy regardless of what the remote claims in Content-Length.
	maxBodyBytes = 8 * 1024 * 1024

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// ErrPageNotFound is returned when the remote answers with 404,
// distinguished from other HTTP failures so the backoff kernel and the
// error classifier can treat it as terminal.
var ErrPageNotFound = errors.New("siteclient: page not found")

// Config configures a Client's transport.
type Config struct {
	Host      string
	UserAgent string
	Proxy     string // "http://host:port" or "socks5://host:port"; empty disables
	Timeout   time.Duration
}

// Client is a host-scoped HTTP client shaped for dcinside's listing,
// comment and rank-feed endpoints.
type Client struct {
	host      string
	userAgent string
	http      *http.Client
}

// New builds a Client from Config, wiring an HTTP or SOCKS5 proxy when
// one is configured.
func New(cfg Config) (*Client, error) {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("siteclient: invalid proxy url: %w", err)
		}
		switch proxyURL.Scheme {
		case "socks5", "socks5h":
			dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, nil, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("siteclient: socks5 dialer: %w", err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		default:
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Client{
		host:      cfg.Host,
		userAgent: ua,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

// Host returns the scheme+host this client was configured against.
func (c *Client) Host() string { return c.host }

// Get issues a GET to path (relative to Host, or absolute) with the
// given Referer.
func (c *Client) Get(ctx context.Context, path, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req, referer)
	return c.do(req)
}

// PostForm issues a url-encoded form POST to path with the given Referer.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	c.applyHeaders(req, referer)
	return c.do(req)
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.host + path
}

func (c *Client) applyHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", c.userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "*/*")
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPageNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("siteclient: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("siteclient: read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}
	return body, nil
}

// StripJSONP strips a JSONP envelope `<callback>(<json>);` given the
// caller-known callback name, trimming whitespace first and then
// callback.len()+1 leading bytes and 1 trailing byte. The result may
// retain a trailing closing paren or stray whitespace; decode it with
// a streaming json.Decoder, which stops at the first complete value
// and ignores what follows.
func StripJSONP(body []byte, callback string) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	lead := len(callback) + 1
	if len(trimmed) < lead+1 {
		return nil, fmt.Errorf("siteclient: jsonp body too short for callback %q", callback)
	}
	return trimmed[lead : len(trimmed)-1], nil
}
