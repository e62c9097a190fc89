package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "ghsync/pkg/errors"
	"ghsync/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Options{
		Token:             "test-token",
		BaseURL:           server.URL,
		Timeout:           5 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             1000,
		SecondaryCooldown: 10 * time.Millisecond,
	}, logger.NewTestLogger())
	client.safetyMargin = 10 * time.Millisecond
	return client, server
}

func quotaHeaders(w http.ResponseWriter, remaining int, reset time.Time) {
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func TestGetJSONSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		w.Write([]byte(`{"login":"octocat","id":1}`))
	}))

	var profile Profile
	err := client.GetJSON(context.Background(), "/users/octocat", nil, &profile)
	require.NoError(t, err)

	assert.Equal(t, "token test-token", gotAuth)
	assert.Equal(t, "application/vnd.github.v3+json", gotAccept)
	assert.Equal(t, "octocat", profile.Login)
}

func TestSetHeaderIsSentOnRequests(t *testing.T) {
	var gotAgent string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		w.Write([]byte(`{}`))
	}))
	client.SetHeader("User-Agent", "ghsync/2.0.0")

	resp, err := client.Execute(context.Background(), http.MethodGet, "/user", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "ghsync/2.0.0", gotAgent)
}

func TestExecuteRetriesServerErrors(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))

	resp, err := client.Execute(context.Background(), http.MethodGet, "/user", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Execute(context.Background(), http.MethodGet, "/users/ghost", nil, nil)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNotFound, apiErr.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExecuteReissuesOnceAfter429(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			quotaHeaders(w, 1, time.Now().Add(time.Hour))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		w.Write([]byte(`{}`))
	}))

	resp, err := client.Execute(context.Background(), http.MethodGet, "/user", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestExecuteSurfacesSecond429(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		quotaHeaders(w, 1, time.Now().Add(time.Hour))
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Execute(context.Background(), http.MethodGet, "/user", nil, nil)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeRateLimit, apiErr.Type)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestExecuteWaitsForExhaustedQuota(t *testing.T) {
	reset := time.Now().Add(300 * time.Millisecond)
	var firstCall time.Time
	var secondCall time.Time

	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			firstCall = time.Now()
			quotaHeaders(w, 0, reset)
		} else {
			secondCall = time.Now()
			quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		}
		w.Write([]byte(`{}`))
	}))

	resp, err := client.Execute(context.Background(), http.MethodGet, "/user", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	// The snapshot now shows remaining=0, so the next request must not go
	// out before the reset time.
	resp, err = client.Execute(context.Background(), http.MethodGet, "/user", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.False(t, secondCall.IsZero())
	assert.True(t, secondCall.After(reset) || secondCall.Equal(reset),
		"second request went out %v after the first, before the reset", secondCall.Sub(firstCall))
}

func TestGetJSONParseFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		w.Write([]byte(`{not json`))
	}))

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "/user", nil, &out)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestAuthFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quotaHeaders(w, 4999, time.Now().Add(time.Hour))
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.AuthenticatedUser(context.Background())
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
}
