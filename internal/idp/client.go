// Package idp mirrors BookClub resources on the identity provider.
//
// Resources are registered through the UMA 2.0 protection API of a
// Keycloak realm so that the provider can answer authorization requests for
// them. The client authenticates with the client credentials grant.
package idp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/ratelimit"
)

const (
	defaultRPS     = 5.0
	defaultBurst   = 10
	defaultTimeout = 10 * time.Second

	// Tokens are refreshed this long before they expire.
	tokenSkew = 30 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds identity provider connection settings.
type Config struct {
	BaseURL      string // e.g. http://keycloak:8080
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Resource describes a local resource to mirror.
type Resource struct {
	ID   string
	Type string // e.g. https://schema.org/Review
	// Vars fill the placeholders of the operation label, e.g. "bookId".
	// "id" defaults to ID.
	Vars map[string]string
}

// CreateOptions tunes a registration.
type CreateOptions struct {
	// OperationLabel is the URI template the resource is served under,
	// e.g. "/books/{bookId}/reviews/{id}{._format}".
	OperationLabel string
}

// URI expands the operation label for res. Format suffixes are dropped.
func (o CreateOptions) URI(res Resource) string {
	uri := strings.ReplaceAll(o.OperationLabel, "{._format}", "")
	uri = strings.ReplaceAll(uri, "{id}", res.ID)
	for k, v := range res.Vars {
		uri = strings.ReplaceAll(uri, "{"+k+"}", v)
	}
	return uri
}

// Client is a rate-limited UMA resource registration client.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	now         func() time.Time
}

// New creates a new identity provider client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
		now:     time.Now,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Enabled reports whether a provider is configured.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

func (c *Client) realmURL(path string) string {
	return c.cfg.BaseURL + "/realms/" + url.PathEscape(c.cfg.Realm) + path
}

type registration struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	URIs               []string `json:"uris"`
	Owner              string   `json:"owner"`
	OwnerManagedAccess bool     `json:"ownerManagedAccess"`
}

// Create registers res on the provider, owned by owner.
func (c *Client) Create(ctx context.Context, res Resource, owner *domain.User, opts CreateOptions) error {
	if !c.Enabled() {
		return &Error{Op: "register", Err: ErrDisabled}
	}

	uri := opts.URI(res)
	body, err := json.Marshal(registration{
		Name:               uri,
		Type:               res.Type,
		URIs:               []string{uri},
		Owner:              owner.Email,
		OwnerManagedAccess: true,
	})
	if err != nil {
		return &Error{Op: "register", URI: uri, Err: err}
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.realmURL("/authz/protection/resource_set"), bytes.NewReader(body))
	if err != nil {
		return &Error{Op: "register", URI: uri, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	if _, err := c.do(ctx, req, http.StatusCreated); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.invalidateToken()
		}
		return &Error{Op: "register", URI: uri, Err: err}
	}

	c.logger.Info("resource registered on identity provider",
		"uri", uri,
		"owner", owner.Email,
	)
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached service account token, fetching a new one when
// the cached token is about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.realmURL("/protocol/openid-connect/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Op: "token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(ctx, req, http.StatusOK)
	if err != nil {
		return "", &Error{Op: "token", Err: err}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &Error{Op: "token", Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", &Error{Op: "token", Err: fmt.Errorf("empty access token")}
	}

	c.accessToken = tr.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSkew)
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
}

// do executes a rate-limited request and checks the status code.
func (c *Client) do(ctx context.Context, req *http.Request, want int) ([]byte, error) {
	if err := c.limiter.Wait(ctx, req.URL.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "BookClub/1.0")

	c.logger.Debug("idp request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == want:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrConflict
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, ErrServer
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
