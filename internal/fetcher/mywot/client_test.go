package mywot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClientWithURL(url, pterm.DefaultLogger.WithLevel(pterm.LogLevelError))
	c.retryDelay = time.Millisecond
	return c
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	body := `<?xml version="1.0" encoding="UTF-8"?>
<query target="example.com">
	<application name="0" r="93" c="71"/>
	<application name="1" r="92" c="68"/>
	<application name="2" r="x" c=""/>
	<application name="3" r="50" c="50"/>
	<application name="4" r="0" c="12"/>
	<application name="9" r="10" c="10"/>
</query>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "example.com", r.URL.Query().Get("target"))
		assert.Equal(t, "wotcache", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	metrics, err := newTestClient(srv.URL).Fetch(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, []reputation.Category{
		reputation.Trustworthiness,
		reputation.VendorReliability,
		reputation.Privacy,
		reputation.ChildSafety,
	}, metrics.Sorted())

	assert.Equal(t, 93, *metrics[reputation.Trustworthiness].Reputation)
	assert.Equal(t, 68, *metrics[reputation.VendorReliability].Confidence)
	assert.Nil(t, metrics[reputation.Privacy].Reputation)
	assert.Nil(t, metrics[reputation.Privacy].Confidence)
	assert.Equal(t, 0, *metrics[reputation.ChildSafety].Reputation)
}

func TestClient_Fetch_Latin1(t *testing.T) {
	t.Parallel()

	body := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<query target=\"caf\xe9.com\"><application name=\"0\" r=\"40\" c=\"23\"/></query>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	metrics, err := newTestClient(srv.URL).Fetch(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, 40, *metrics[reputation.Trustworthiness].Reputation)
}

func TestClient_Fetch_EmptyAnswer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<query target="unknown.org"></query>`))
	}))
	defer srv.Close()

	metrics, err := newTestClient(srv.URL).Fetch(context.Background(), "unknown.org")
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestClient_Fetch_RetriesServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`<query target="example.com"><application name="0" r="80" c="45"/></query>`))
	}))
	defer srv.Close()

	metrics, err := newTestClient(srv.URL).Fetch(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 80, *metrics[reputation.Trustworthiness].Reputation)
}

func TestClient_Fetch_GivesUpAfterOneRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Fetch_NoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "example.com")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Fetch_MalformedXML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>maintenance</body></html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode xml")
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL).Fetch(ctx, "example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
