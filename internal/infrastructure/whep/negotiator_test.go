package whep

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vigilcam/internal/core/domain"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testNegotiator(t *testing.T) *Negotiator {
	t.Helper()
	return NewNegotiator(Config{
		// Host candidates only so gathering finishes fast without STUN traffic.
		ICEServers:       []webrtc.ICEServer{{}},
		GatherTimeout:    200 * time.Millisecond,
		SignalingTimeout: 2 * time.Second,
	}, zap.NewNop().Sugar())
}

func endpointFor(t *testing.T, baseURL string) domain.StreamEndpoint {
	t.Helper()
	return domain.NewStreamEndpointWith(baseURL+"/cam/", true)
}

func TestNegotiate_ServerErrorSurfacesStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := testNegotiator(t)
	sess, err := n.Negotiate(context.Background(), endpointFor(t, srv.URL), Callbacks{})
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Contains(t, err.Error(), "500")
}

func TestNegotiate_UnreachableHost(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	n := testNegotiator(t)
	sess, err := n.Negotiate(context.Background(), endpointFor(t, addr), Callbacks{})
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Contains(t, err.Error(), "signaling request failed")
}

func TestNegotiate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := testNegotiator(t)
	sess, err := n.Negotiate(ctx, endpointFor(t, "http://127.0.0.1:8889"), Callbacks{})
	require.Error(t, err)
	assert.Nil(t, sess)
}

func TestNegotiate_OfferAnswerRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/sdp", r.Header.Get("Content-Type"))

		offerSDP, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		answer := answerFor(t, string(offerSDP))
		w.Header().Set("Content-Type", "application/sdp")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(answer))
	}))
	defer srv.Close()

	n := testNegotiator(t)
	sess, err := n.Negotiate(context.Background(), endpointFor(t, srv.URL), Callbacks{})
	require.NoError(t, err)
	require.NotNil(t, sess)
	defer sess.Close()

	assert.Zero(t, sess.Stats().Packets)
}

// answerFor plays the media gateway side of the exchange.
func answerFor(t *testing.T, offerSDP string) string {
	t.Helper()

	m := &webrtc.MediaEngine{}
	require.NoError(t, m.RegisterDefaultCodecs())
	pc, err := webrtc.NewAPI(webrtc.WithMediaEngine(m)).NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	require.NoError(t, pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}))

	answer, err := pc.CreateAnswer(nil)
	require.NoError(t, err)

	gathered := webrtc.GatheringCompletePromise(pc)
	require.NoError(t, pc.SetLocalDescription(answer))
	select {
	case <-gathered:
	case <-time.After(2 * time.Second):
	}

	return pc.LocalDescription().SDP
}
