package whep

import (
	"context"
	"sync"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Driver adapts the WHEP negotiator to the attempt driver port. Each Start
// call runs one full negotiation in the background and reports the outcome
// through the attempt callbacks.
type Driver struct {
	negotiator *Negotiator
	metrics    ports.ConnectionMetrics
	logger     *zap.SugaredLogger
}

// NewDriver creates a WHEP attempt driver. metrics may be nil.
func NewDriver(negotiator *Negotiator, metrics ports.ConnectionMetrics, logger *zap.SugaredLogger) *Driver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{negotiator: negotiator, metrics: metrics, logger: logger}
}

// Start launches one negotiation attempt. The returned handle stops the
// attempt whether it is still negotiating or already streaming.
func (d *Driver) Start(ctx context.Context, endpoint domain.StreamEndpoint, cb ports.AttemptCallbacks) (ports.AttemptHandle, error) {
	actx, cancel := context.WithCancel(ctx)
	h := &attempt{cancel: cancel}

	go func() {
		start := time.Now()
		sess, err := d.negotiator.Negotiate(actx, endpoint, Callbacks{
			OnTrack: func(track *webrtc.TrackRemote) {
				cb.OnReady(ports.MediaHandle{
					Transport:   endpoint.Transport,
					PlaybackURL: endpoint.URL,
					RemoteTrack: track,
				})
			},
			OnConnectionProblem: func(reason string) {
				h.fail(cb.OnFailure, reason)
			},
		})
		if d.metrics != nil {
			d.metrics.ObserveNegotiation(time.Since(start), err == nil)
		}
		if err != nil {
			// A cancelled attempt was superseded; its failure is nobody's news.
			if actx.Err() == nil {
				h.fail(cb.OnFailure, err.Error())
			}
			return
		}
		if !h.adopt(sess) {
			sess.Close()
		}
	}()

	return h, nil
}

// attempt is the handle for one in-flight or live WHEP attempt.
type attempt struct {
	cancel context.CancelFunc

	mu       sync.Mutex
	sess     *Session
	stopped  bool
	failOnce sync.Once
}

// fail reports at most one terminal failure per attempt, and none once the
// attempt has been stopped. ICE raises both disconnected and failed for a
// single dead connection; only the first reaches the caller.
func (a *attempt) fail(report func(reason string), reason string) {
	a.mu.Lock()
	stopped := a.stopped
	a.mu.Unlock()
	if stopped {
		return
	}
	a.failOnce.Do(func() { report(reason) })
}

// adopt hands the negotiated session to the handle. Returns false if the
// attempt was stopped while negotiating, in which case the caller must close
// the session itself.
func (a *attempt) adopt(sess *Session) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}
	a.sess = sess
	return true
}

// Stop tears the attempt down. Idempotent.
func (a *attempt) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	sess := a.sess
	a.sess = nil
	a.mu.Unlock()

	a.cancel()
	if sess != nil {
		sess.Close()
	}
}
