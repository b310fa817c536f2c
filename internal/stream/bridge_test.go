package stream_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohittcodes/flashio-sub001/internal/stream"
)

type fakeSource struct {
	mu       sync.Mutex
	out      chan []byte
	leased   bool
	released bool
	err      error
}

func newFakeSource() *fakeSource {
	return &fakeSource{out: make(chan []byte, 8)}
}

func (s *fakeSource) AcquireOutput() (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leased {
		return nil, nil, errors.New("busy")
	}
	s.leased = true
	return s.out, func() {
		s.mu.Lock()
		s.leased = false
		s.released = true
		s.mu.Unlock()
	}, nil
}

func (s *fakeSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSource) wasReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func newStreamRequest(ctx context.Context) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminal/sessions/output", nil)
	req.URL.RawQuery = url.Values{"sessionId": {"sess-1"}}.Encode()
	return req.WithContext(ctx)
}

func TestRelayForwardsOutputAndEnd(t *testing.T) {
	src := newFakeSource()
	src.out <- []byte("$ ls\n")
	src.out <- []byte("main.go\n")
	close(src.out)

	rec := httptest.NewRecorder()
	err := stream.Relay(rec, newStreamRequest(context.Background()), "sess-1", src)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: output\n")
	assert.Contains(t, body, base64.StdEncoding.EncodeToString([]byte("$ ls\n")))
	assert.Contains(t, body, base64.StdEncoding.EncodeToString([]byte("main.go\n")))
	assert.Contains(t, body, "event: end\n")
	assert.Contains(t, body, `"sessionId":"sess-1"`)
	assert.True(t, src.wasReleased())
}

func TestRelayReportsSourceError(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("pty read failed")
	close(src.out)

	rec := httptest.NewRecorder()
	err := stream.Relay(rec, newStreamRequest(context.Background()), "sess-1", src)
	require.Error(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, "pty read failed")
	assert.NotContains(t, body, "event: end\n")
	assert.True(t, src.wasReleased())
}

func TestRelayBusyLease(t *testing.T) {
	src := newFakeSource()
	_, release, err := src.AcquireOutput()
	require.NoError(t, err)
	defer release()

	rec := httptest.NewRecorder()
	err = stream.Relay(rec, newStreamRequest(context.Background()), "sess-1", src)
	assert.ErrorIs(t, err, stream.ErrStreamBusy, "a second subscriber must be rejected")
}

func TestRelayClientDisconnectReleasesLease(t *testing.T) {
	src := newFakeSource()
	ctx, cancel := context.WithCancel(context.Background())

	rec := httptest.NewRecorder()
	done := make(chan error, 1)
	go func() {
		done <- stream.Relay(rec, newStreamRequest(ctx), "sess-1", src)
	}()

	src.out <- []byte("partial output")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "a client disconnect is not a relay failure")
	case <-time.After(time.Second):
		t.Fatal("relay did not return after client disconnect")
	}
	assert.True(t, src.wasReleased(), "disconnect must free the lease for the next subscriber")

	// A new subscriber can attach immediately.
	_, release, err := src.AcquireOutput()
	require.NoError(t, err)
	release()
}

type noFlushWriter struct {
	http.ResponseWriter
}

func TestRelayRequiresFlusher(t *testing.T) {
	src := newFakeSource()
	rec := httptest.NewRecorder()

	err := stream.Relay(noFlushWriter{rec}, newStreamRequest(context.Background()), "sess-1", src)
	assert.ErrorIs(t, err, stream.ErrStreamUnsupported)
}
