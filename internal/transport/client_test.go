package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsync/civicsync/pkg/errors"
)

func TestGetJSONAppliesQueryAuth(t *testing.T) {
	var gotKey, gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		gotPage = r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"name":"a"}]}`))
	}))
	defer srv.Close()

	c := New("fec",
		WithBaseURL(srv.URL),
		WithAuth(&QueryAuth{Param: "api_key"}, "secret"),
	)

	var out struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	err := c.GetJSON(context.Background(), "/v1/schedules", url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "2", gotPage)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "a", out.Results[0].Name)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"not found", http.StatusNotFound, errors.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, errors.ErrRateLimited},
		{"server error", http.StatusInternalServerError, errors.ErrSourceUnavailable},
		{"bad gateway", http.StatusBadGateway, errors.ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := New("congress", WithBaseURL(srv.URL))
			err := c.GetJSON(context.Background(), "/bill", nil, &struct{}{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *errors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "congress", apiErr.Source)
		})
	}
}

func TestMalformedJSONIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [`))
	}))
	defer srv.Close()

	c := New("congress", WithBaseURL(srv.URL))
	err := c.GetJSON(context.Background(), "/bill", nil, &struct{}{})
	require.Error(t, err)

	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestFixedDelayAppliesAfterEveryRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	delay := 30 * time.Millisecond
	c := New("congress", WithBaseURL(srv.URL), WithDelay(delay))

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.GetJSON(context.Background(), "/", nil, &struct{}{}))
	}
	assert.GreaterOrEqual(t, time.Since(start), 3*delay)
}

func TestDelayAppliesToErrorResponsesToo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	delay := 30 * time.Millisecond
	c := New("fec", WithBaseURL(srv.URL), WithDelay(delay))

	start := time.Now()
	err := c.GetJSON(context.Background(), "/", nil, &struct{}{})
	assert.ErrorIs(t, err, errors.ErrRateLimited)
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestCancellationDuringThrottle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("congress", WithBaseURL(srv.URL), WithDelay(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.GetJSON(ctx, "/", nil, &struct{}{})
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestGetRawReturnsBodyVerbatim(t *testing.T) {
	const payload = `<rollcall-vote><congress>119</congress></rollcall-vote>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := New("clerk", WithBaseURL(srv.URL))
	body, err := c.GetRaw(context.Background(), "/evs/2025/roll017.xml", nil)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestAbsoluteURLBypassesBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("congress", WithBaseURL("https://example.invalid"))
	err := c.GetJSON(context.Background(), srv.URL+"/next-page", nil, &struct{}{})
	assert.NoError(t, err)
}
