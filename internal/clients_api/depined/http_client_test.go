package depined

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"depined-bot/internal/infra/retry"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
		opts.RateBurst = 100
	}
	return NewClient("jwt-token-abcdef", opts)
}

func TestClient_SendsAuthHeaders(t *testing.T) {
	var gotAuth, gotType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"data":{"username":"alice"}}`))
	}, Options{})

	_, err := c.GetUserDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer jwt-token-abcdef", gotAuth)
	assert.Equal(t, "application/json", gotType)
}

func TestClient_GetUserDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, EndpointUserDetails, r.URL.Path)
		w.Write([]byte(`{"data":{"username":"alice","email":"a@example.com"}}`))
	}, Options{})

	details, err := c.GetUserDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", details.Username)
}

func TestClient_ConnectWidget(t *testing.T) {
	var body WidgetConnectRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, EndpointWidgetConnect, r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusNoContent)
	}, Options{})

	require.NoError(t, c.ConnectWidget(context.Background()))
	assert.True(t, body.Connected)
}

func TestClient_GetEpochEarnings(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		earnings float64
	}{
		{"number", `{"data":{"earnings":1523.456,"epoch":12}}`, 1523.456},
		{"string", `{"data":{"earnings":"2500000","epoch":12}}`, 2500000},
		{"null", `{"data":{"earnings":null,"epoch":12}}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, EndpointEpochEarnings, r.URL.Path)
				w.Write([]byte(tt.payload))
			}, Options{})

			got, err := c.GetEpochEarnings(context.Background())
			require.NoError(t, err)
			assert.InDelta(t, tt.earnings, float64(got.Earnings), 1e-9)
			assert.Equal(t, int64(12), got.Epoch)
		})
	}
}

func TestClient_BadEarningsString(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"earnings":"lots","epoch":1}}`))
	}, Options{})

	_, err := c.GetEpochEarnings(context.Background())
	assert.Error(t, err)
}

func TestClient_Non2xxIsHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"slow down"}`))
	}, Options{})

	err := c.ConnectWidget(context.Background())
	var he *retry.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
	assert.Equal(t, 7*time.Second, he.RetryAfter)
	assert.Contains(t, err.Error(), "slow down")
}

func TestClient_NoInRequestRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, Options{})

	require.Error(t, c.ConnectWidget(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, Options{MaxRetries: 1})

	require.NoError(t, c.ConnectWidget(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NoBreakerByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, Options{})

	for i := 0; i < 8; i++ {
		err := c.ConnectWidget(context.Background())
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState), "attempt %d short-circuited", i+1)
	}
	assert.Equal(t, int32(8), calls.Load(), "every attempt reaches the server")
}

func TestClient_BreakerOpensWhenEnabled(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, Options{BreakerFailures: 2, BreakerTimeout: time.Minute})

	require.Error(t, c.ConnectWidget(context.Background()))
	require.Error(t, c.ConnectWidget(context.Background()))

	err := c.ConnectWidget(context.Background())
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "got %v", err)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must short-circuit")
}

func TestClient_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.ConnectWidget(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
