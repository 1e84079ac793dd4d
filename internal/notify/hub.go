package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HubPublisher posts notifications to a Mercure-compatible hub.
type HubPublisher struct {
	hubURL     string
	secret     []byte
	httpClient *http.Client
}

// NewHubPublisher creates a publisher for the hub at hubURL. Requests are
// signed with an HS256 token derived from secret.
func NewHubPublisher(hubURL string, secret []byte, timeout time.Duration) *HubPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HubPublisher{
		hubURL:     hubURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type hubClaims struct {
	Mercure struct {
		Publish []string `json:"publish"`
	} `json:"mercure"`
	jwt.RegisteredClaims
}

// token returns a short-lived JWT allowing publication on every topic.
func (h *HubPublisher) token() (string, error) {
	claims := hubClaims{}
	claims.Mercure.Publish = []string{"*"}
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

// Publish sends one update carrying every topic.
func (h *HubPublisher) Publish(ctx context.Context, topics []string, payload []byte) error {
	form := url.Values{}
	for _, topic := range topics {
		form.Add("topic", topic)
	}
	form.Set("data", string(payload))

	tok, err := h.token()
	if err != nil {
		return fmt.Errorf("%w: sign hub token: %w", ErrPublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.hubURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: hub returned %d", ErrPublish, resp.StatusCode)
	}
	return nil
}

// Fanout publishes to several publishers. Every publisher is tried; their
// errors are joined.
type Fanout []Publisher

// Publish delivers to all publishers in order.
func (f Fanout) Publish(ctx context.Context, topics []string, payload []byte) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, topics, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
