package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type attemptResult struct {
	ready   chan ports.MediaHandle
	failure chan string
}

func newAttemptResult() *attemptResult {
	return &attemptResult{
		ready:   make(chan ports.MediaHandle, 1),
		failure: make(chan string, 1),
	}
}

func (r *attemptResult) callbacks() ports.AttemptCallbacks {
	return ports.AttemptCallbacks{
		OnReady:   func(m ports.MediaHandle) { r.ready <- m },
		OnFailure: func(reason string) { r.failure <- reason },
	}
}

func (r *attemptResult) waitReady(t *testing.T) ports.MediaHandle {
	t.Helper()
	select {
	case m := <-r.ready:
		return m
	case reason := <-r.failure:
		t.Fatalf("expected ready, got failure: %s", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ready")
	}
	return ports.MediaHandle{}
}

func (r *attemptResult) waitFailure(t *testing.T) string {
	t.Helper()
	select {
	case reason := <-r.failure:
		return reason
	case <-r.ready:
		t.Fatal("expected failure, got ready")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure")
	}
	return ""
}

func TestHLSDriver_ValidPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n#EXT-X-VERSION:3\n"))
	}))
	defer srv.Close()

	endpoint := domain.NewStreamEndpoint(srv.URL + "/hls/stream.m3u8")
	res := newAttemptResult()

	d := NewHLSDriver(time.Second, zap.NewNop().Sugar())
	_, err := d.Start(context.Background(), endpoint, res.callbacks())
	require.NoError(t, err)

	m := res.waitReady(t)
	assert.Equal(t, endpoint.URL, m.PlaybackURL)
	assert.Equal(t, domain.TransportSegmentedHTTP, m.Transport)
}

func TestHLSDriver_HTTPErrorSurfacesStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res := newAttemptResult()
	d := NewHLSDriver(time.Second, zap.NewNop().Sugar())
	_, err := d.Start(context.Background(), domain.NewStreamEndpoint(srv.URL+"/stream.m3u8"), res.callbacks())
	require.NoError(t, err)

	assert.Equal(t, "HTTP error: 404", res.waitFailure(t))
}

func TestHLSDriver_NotAPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a playlist</html>"))
	}))
	defer srv.Close()

	res := newAttemptResult()
	d := NewHLSDriver(time.Second, zap.NewNop().Sugar())
	_, err := d.Start(context.Background(), domain.NewStreamEndpoint(srv.URL+"/stream.m3u8"), res.callbacks())
	require.NoError(t, err)

	assert.Contains(t, res.waitFailure(t), "load error")
}

func TestHLSDriver_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	res := newAttemptResult()
	d := NewHLSDriver(time.Second, zap.NewNop().Sugar())
	_, err := d.Start(context.Background(), domain.NewStreamEndpoint(addr+"/stream.m3u8"), res.callbacks())
	require.NoError(t, err)

	assert.Contains(t, res.waitFailure(t), "load error")
}

func TestHLSDriver_StoppedAttemptStaysSilent(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()
	defer close(release)

	res := newAttemptResult()
	d := NewHLSDriver(5*time.Second, zap.NewNop().Sugar())
	h, err := d.Start(context.Background(), domain.NewStreamEndpoint(srv.URL+"/stream.m3u8"), res.callbacks())
	require.NoError(t, err)

	h.Stop()

	select {
	case m := <-res.ready:
		t.Fatalf("unexpected ready after stop: %+v", m)
	case reason := <-res.failure:
		t.Fatalf("unexpected failure after stop: %s", reason)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmbeddedDriver_ReachablePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><video></video></html>"))
	}))
	defer srv.Close()

	res := newAttemptResult()
	d := NewEmbeddedDriver(time.Second, zap.NewNop().Sugar())
	_, err := d.Start(context.Background(), domain.NewStreamEndpoint(srv.URL), res.callbacks())
	require.NoError(t, err)

	m := res.waitReady(t)
	assert.Equal(t, srv.URL, m.PlaybackURL)
	assert.Equal(t, domain.TransportEmbedded, m.Transport)
}

func TestEmbeddedDriver_HTTPErrorSurfacesStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res := newAttemptResult()
	d := NewEmbeddedDriver(time.Second, zap.NewNop().Sugar())
	_, err := d.Start(context.Background(), domain.NewStreamEndpoint(srv.URL), res.callbacks())
	require.NoError(t, err)

	assert.Equal(t, "HTTP error: 502", res.waitFailure(t))
}
