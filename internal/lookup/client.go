// Package lookup resolves book titles from an ISBN against a Google Books
// compatible volumes endpoint. Each lookup is exactly one HTTP request.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the endpoint knows no volume for the isbn.
var ErrNotFound = errors.New("no title found for isbn")

// DefaultTimeout bounds a lookup when none is configured.
const DefaultTimeout = 8 * time.Second

// maxBody caps the response bytes read from the endpoint.
const maxBody = 1 << 20

// Client queries the volumes endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a client for endpoint whose requests time out after timeout.
func New(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title    string `json:"title"`
			Subtitle string `json:"subtitle"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// LookupTitle returns the title of the first volume matching isbn. An empty result
// yields ErrNotFound; transport and decoding failures are returned wrapped.
func (c *Client) LookupTitle(ctx context.Context, isbn string) (string, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return "", ErrNotFound
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse lookup url: %w", err)
	}
	q := u.Query()
	q.Set("q", "isbn:"+isbn)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", isbn, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup %s: unexpected status %d", isbn, resp.StatusCode)
	}
	var body volumesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode lookup response: %w", err)
	}
	for _, item := range body.Items {
		title := strings.TrimSpace(item.VolumeInfo.Title)
		if title == "" {
			continue
		}
		if sub := strings.TrimSpace(item.VolumeInfo.Subtitle); sub != "" {
			title += ": " + sub
		}
		return title, nil
	}
	return "", ErrNotFound
}
