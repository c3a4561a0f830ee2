package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramChannelSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	ch := NewTelegramChannel("token", srv.URL, time.Second, testLogger())
	require.NoError(t, ch.Send(context.Background(), "chat", "hello"))
	assert.Equal(t, "chat", received["chat_id"])
	assert.Equal(t, "hello", received["text"])
	assert.NoError(t, ch.Close(context.Background()))
}

func TestTelegramChannelFloodControl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  429,
			"description": "Too Many Requests: retry after 3",
			"parameters":  map[string]int{"retry_after": 3},
		})
	}))
	defer srv.Close()

	ch := NewTelegramChannel("token", srv.URL, time.Second, testLogger())
	err := ch.Send(context.Background(), "chat", "hello")

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 3*time.Second, rateErr.RetryAfter)
}

func TestTelegramChannelRetryAfterHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ch := NewTelegramChannel("token", srv.URL, time.Second, testLogger())
	var rateErr *RateLimitError
	require.ErrorAs(t, ch.Send(context.Background(), "chat", "hello"), &rateErr)
	assert.Equal(t, 7*time.Second, rateErr.RetryAfter)
}

func TestTelegramChannelRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"})
	}))
	defer srv.Close()

	ch := NewTelegramChannel("token", srv.URL, time.Second, testLogger())
	var delivery *DeliveryError
	require.ErrorAs(t, ch.Send(context.Background(), "chat", "hello"), &delivery)
	assert.Equal(t, http.StatusBadRequest, delivery.StatusCode)
	assert.Contains(t, delivery.Error(), "chat not found")
}

func TestTelegramChannelOKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	ch := NewTelegramChannel("token", srv.URL, time.Second, testLogger())
	var delivery *DeliveryError
	require.ErrorAs(t, ch.Send(context.Background(), "chat", "hello"), &delivery)
}

func TestTelegramChannelRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	ch := NewTelegramChannel("123:secret-token", base, time.Second, testLogger())
	err := ch.Send(context.Background(), "chat", "hello")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "secret-token"), err.Error())
}
