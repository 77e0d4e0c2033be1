package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	w := hit(handler, "10.0.0.1:9999", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	require.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:9999", nil).Code)

	w = hit(handler, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var (
		code int
		msg  string
	)
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Int()
		case "message":
			msg, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", msg)

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.2:1234", nil).Code)
}

func TestRateLimitKeys(t *testing.T) {
	t.Run("forwarded for", func(t *testing.T) {
		handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
		xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}

		assert.Equal(t, http.StatusOK, hit(handler, "192.168.1.1:4444", xff).Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(handler, "192.168.1.2:5555", xff).Code)
	})

	t.Run("custom key", func(t *testing.T) {
		handler := RateLimit(RateLimitConfig{
			Max:     1,
			Window:  time.Minute,
			KeyFunc: func(r *http.Request) string { return r.Header.Get("X-Register") },
		})(okHandler())

		a := map[string]string{"X-Register": "till-1"}
		b := map[string]string{"X-Register": "till-2"}
		assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1", a).Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(handler, "10.0.0.1:1", a).Code)
		assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1", b).Code)
	})
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(RateLimitConfig{})(okHandler())
	for range 10 {
		w := hit(handler, "10.0.0.1:1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestWindowSlides(t *testing.T) {
	var w window
	start := time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)

	for range 4 {
		_, _, ok := w.take(start, time.Minute, 4)
		require.True(t, ok)
	}
	_, _, ok := w.take(start.Add(30*time.Second), time.Minute, 4)
	assert.False(t, ok, "window still full")

	// Halfway through the next window half of the previous count remains.
	mid := start.Add(90 * time.Second)
	remaining, _, ok := w.take(mid, time.Minute, 4)
	require.True(t, ok)
	assert.Equal(t, 1, remaining)

	// Two full windows later everything is forgotten.
	remaining, _, ok = w.take(start.Add(5*time.Minute), time.Minute, 4)
	require.True(t, ok)
	assert.Equal(t, 3, remaining)
}
