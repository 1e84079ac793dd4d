// Package catalog looks up book metadata in Open Library.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/bookclub-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the public Open Library instance.
	DefaultBaseURL = "https://openlibrary.org"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Lookup errors.
var (
	ErrNotFound   = errors.New("catalog entry not found")
	ErrInvalidRef = errors.New("invalid catalog reference")
	ErrUpstream   = errors.New("catalog request failed")
)

// Metadata is what the catalog knows about a book.
type Metadata struct {
	Title  string
	Author string
}

// Config holds catalog settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client resolves catalog references of the form
// "https://openlibrary.org/books/OL28346544M.json".
//
// Only the path of a reference is used; it is resolved against the
// configured base URL.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	rateLimiter *ratelimit.KeyedRateLimiter
	logger      *slog.Logger
}

// New creates a catalog client. Open Library asks for at most a few
// requests per second, with short bursts.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     base,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: ratelimit.New(3, 5),
		logger:      logger,
	}, nil
}

// Close releases the rate limiter.
func (c *Client) Close() {
	c.rateLimiter.Stop()
}

type editionResponse struct {
	Title   string `json:"title"`
	Authors []struct {
		Key string `json:"key"`
	} `json:"authors"`
}

type authorResponse struct {
	Name string `json:"name"`
}

// Lookup fetches the title and first author of the referenced edition.
// A missing author record leaves Author empty rather than failing.
func (c *Client) Lookup(ctx context.Context, ref string) (*Metadata, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" || u.Path == "/" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	var edition editionResponse
	if err := c.getJSON(ctx, u.Path, &edition); err != nil {
		return nil, err
	}

	meta := &Metadata{Title: edition.Title}
	if len(edition.Authors) == 0 || edition.Authors[0].Key == "" {
		return meta, nil
	}

	var author authorResponse
	if err := c.getJSON(ctx, edition.Authors[0].Key+".json", &author); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug("catalog author missing", "ref", ref, "author", edition.Authors[0].Key)
			return meta, nil
		}
		return nil, err
	}
	meta.Author = author.Name

	return meta, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	if err := c.rateLimiter.Wait(ctx, c.baseURL.Host); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("catalog request", "url", target.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d for %s", ErrUpstream, resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
