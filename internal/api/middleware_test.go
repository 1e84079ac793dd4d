package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/ratelimit"
)

func TestRateLimit_PerUser(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	defer limiter.Stop()

	handler := rateLimit(limiter, slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	request := func(user *domain.User) int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if user != nil {
			req = req.WithContext(withUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	alice := &domain.User{Syncable: domain.Syncable{ID: "u-alice"}}
	bob := &domain.User{Syncable: domain.Syncable{ID: "u-bob"}}

	assert.Equal(t, http.StatusNoContent, request(alice))
	assert.Equal(t, http.StatusTooManyRequests, request(alice))
	assert.Equal(t, http.StatusNoContent, request(bob))

	// Anonymous requests are not throttled here.
	assert.Equal(t, http.StatusNoContent, request(nil))
	assert.Equal(t, http.StatusNoContent, request(nil))
}
