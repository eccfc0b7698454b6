package whep

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/pkg/tracing"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Config holds WHEP negotiation configuration
type Config struct {
	ICEServers []webrtc.ICEServer
	// GatherTimeout bounds the wait for local candidate gathering. On timeout
	// the attempt proceeds with whatever candidates were gathered so far.
	GatherTimeout time.Duration
	// SignalingTimeout bounds the offer/answer HTTP round trip.
	SignalingTimeout time.Duration
}

// DefaultConfig returns negotiation defaults.
func DefaultConfig() Config {
	return Config{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		GatherTimeout:    2 * time.Second,
		SignalingTimeout: 10 * time.Second,
	}
}

// Callbacks carry asynchronous negotiation events back to the caller.
type Callbacks struct {
	// OnTrack fires the first time an inbound media track is attached.
	OnTrack func(track *webrtc.TrackRemote)
	// OnConnectionProblem fires whenever the ICE connection state becomes
	// failed or disconnected.
	OnConnectionProblem func(reason string)
}

// Session owns the peer connection of one negotiation attempt. The caller
// must Close it on teardown; a leaked session keeps a live media and
// networking resource emitting candidate traffic.
type Session struct {
	pc        *webrtc.PeerConnection
	monitor   *mediaMonitor
	closeOnce sync.Once
}

// Close releases the underlying peer connection. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.pc != nil {
			s.pc.Close()
		}
	})
}

// Stats returns the inbound media health observed so far.
func (s *Session) Stats() domain.InboundMediaStats {
	return s.monitor.stats()
}

// Negotiator performs one-shot WHEP session negotiations. It holds no
// cross-attempt state: every Negotiate call creates a brand-new peer
// connection.
type Negotiator struct {
	cfg    Config
	client *http.Client
	logger *zap.SugaredLogger
}

// NewNegotiator creates a negotiator.
func NewNegotiator(cfg Config, logger *zap.SugaredLogger) *Negotiator {
	def := DefaultConfig()
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = def.ICEServers
	}
	if cfg.GatherTimeout <= 0 {
		cfg.GatherTimeout = def.GatherTimeout
	}
	if cfg.SignalingTimeout <= 0 {
		cfg.SignalingTimeout = def.SignalingTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Negotiator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.SignalingTimeout},
		logger: logger,
	}
}

// Negotiate executes exactly one receive-only negotiation attempt against the
// endpoint's signaling sub-resource. On success the returned session is live
// and events flow through the callbacks; on error every allocated resource
// has already been released.
func (n *Negotiator) Negotiate(ctx context.Context, endpoint domain.StreamEndpoint, cb Callbacks) (*Session, error) {
	signalingURL := endpoint.SignalingURL()
	ctx, span := tracing.TraceNegotiation(ctx, signalingURL)
	defer span.End()

	pc, err := n.createPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("media stack unavailable: %w", err)
	}

	sess := &Session{pc: pc, monitor: newMediaMonitor(n.logger)}

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			sess.Close()
			return nil, fmt.Errorf("failed to add %s transceiver: %w", kind, err)
		}
	}

	var trackOnce sync.Once
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		n.logger.Infow("remote track attached",
			"kind", track.Kind().String(),
			"codec", track.Codec().MimeType,
			"ssrc", track.SSRC(),
		)
		sess.monitor.watch(track, receiver)
		trackOnce.Do(func() {
			if cb.OnTrack != nil {
				cb.OnTrack(track)
			}
		})
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		n.logger.Infow("ICE connection state changed", "state", state.String())
		if state == webrtc.ICEConnectionStateFailed || state == webrtc.ICEConnectionStateDisconnected {
			if cb.OnConnectionProblem != nil {
				cb.OnConnectionProblem(fmt.Sprintf("ICE connection %s", state))
			}
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to apply local description: %w", err)
	}

	// Bounded wait: lower connection latency beats maximal NAT traversal, so
	// a gather timeout is not a failure.
	select {
	case <-gatherComplete:
	case <-time.After(n.cfg.GatherTimeout):
		n.logger.Debugw("candidate gathering timed out, proceeding with partial candidates",
			"timeout", n.cfg.GatherTimeout,
		)
	case <-ctx.Done():
		sess.Close()
		return nil, ctx.Err()
	}

	local := pc.LocalDescription()
	if local == nil {
		sess.Close()
		return nil, domain.ErrNoLocalDescription
	}

	answer, err := n.exchange(ctx, signalingURL, local.SDP)
	if err != nil {
		sess.Close()
		tracing.RecordError(ctx, err)
		return nil, err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to apply remote description: %w", err)
	}

	n.logger.Infow("WHEP negotiation complete", "signaling_url", signalingURL)
	return sess, nil
}

// exchange POSTs the local offer and returns the remote answer SDP.
func (n *Negotiator) exchange(ctx context.Context, signalingURL, offerSDP string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signalingURL, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("failed to build signaling request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sdp")
	req.Header.Set("Accept", "application/sdp")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("signaling request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("signaling request rejected: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read signaling response: %w", err)
	}
	return string(body), nil
}

func (n *Negotiator) createPeerConnection() (*webrtc.PeerConnection, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(m))
	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: n.cfg.ICEServers,
	})
}
