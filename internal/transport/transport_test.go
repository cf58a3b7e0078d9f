package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tools/pso/ping", r.URL.Path)
		assert.Equal(t, "swg", r.URL.Query().Get("as"))
		assert.Equal(t, "T4=abc", r.URL.Query().Get("rlz"))
		w.Write([]byte("crc32: 0\n"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	body, err := c.Send(context.Background(), "/tools/pso/ping?as=swg&rlz=T4=abc")
	require.NoError(t, err)
	assert.Equal(t, "crc32: 0\n", body)
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("crc32: 0"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, WithHTTPClient(srv.Client()), WithRetries(3), WithBackOff(fastBackOff))
	require.NoError(t, err)

	body, err := c.Send(context.Background(), "/tools/pso/ping")
	require.NoError(t, err)
	assert.Equal(t, "crc32: 0", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, WithHTTPClient(srv.Client()), WithRetries(2), WithBackOff(fastBackOff))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "/tools/pso/ping")
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, WithHTTPClient(srv.Client()), WithRetries(5), WithBackOff(fastBackOff))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "/tools/pso/ping")
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendBoundsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 3*rlz.MaxPingResponseLength)))
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	body, err := c.Send(context.Background(), "/tools/pso/ping")
	require.NoError(t, err)
	assert.Len(t, body, rlz.MaxPingResponseLength+1)
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New("ftp://example.com", 0)
	assert.Error(t, err)
	_, err = New("://bad", 0)
	assert.Error(t, err)

	c, err := New("", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, c.base.String())
}

func TestSendRejectsNonPath(t *testing.T) {
	c, err := New("http://127.0.0.1:1", time.Second)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "http://elsewhere/ping")
	assert.ErrorIs(t, err, rlz.ErrInvalidInput)
}
