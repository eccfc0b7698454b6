package services

import (
	"context"
	"sync"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"
	"vigilcam/pkg/backoff"

	"go.uber.org/zap"
)

// SupervisorConfig holds the tunables of the connection supervisor.
type SupervisorConfig struct {
	// RetryLimit is the retry budget: once this many retries have been spent
	// on consecutive failures, the supervisor goes offline instead of
	// retrying again.
	RetryLimit int
	// ControlsHideDelay is how long after entering connected the advisory
	// hide-controls signal fires.
	ControlsHideDelay time.Duration
	// Backoff spaces automatic retries.
	Backoff backoff.Config
}

// DefaultSupervisorConfig returns the supervisor defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		RetryLimit:        5,
		ControlsHideDelay: 3 * time.Second,
		Backoff:           backoff.DefaultConfig(),
	}
}

// Supervisor owns the externally observed connection status for one stream
// endpoint. It dispatches attempts to the driver registered for the
// endpoint's transport, applies the bounded retry budget, and publishes every
// transition to the status sink.
//
// Exactly one attempt is active at a time. Every attempt carries a
// generation; callbacks from superseded attempts are discarded by comparing
// their generation against the current one, so a slow failure from a
// torn-down attempt can never corrupt the status of a newer one.
type Supervisor struct {
	cfg     SupervisorConfig
	drivers map[domain.TransportKind]ports.AttemptDriver
	sink    ports.StatusSink
	metrics ports.ConnectionMetrics
	logger  *zap.SugaredLogger

	mu         sync.Mutex
	running    bool
	endpoint   domain.StreamEndpoint
	status     domain.ConnectionStatus
	retryCount int
	lastError  string
	generation uint64

	active       ports.AttemptHandle
	activeCancel context.CancelFunc
	retryTimer   *time.Timer
	hideTimer    *time.Timer
}

// NewSupervisor creates a supervisor over the given driver registry. sink and
// metrics may be nil.
func NewSupervisor(
	cfg SupervisorConfig,
	drivers map[domain.TransportKind]ports.AttemptDriver,
	sink ports.StatusSink,
	metrics ports.ConnectionMetrics,
	logger *zap.SugaredLogger,
) *Supervisor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Supervisor{
		cfg:     cfg,
		drivers: drivers,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		status:  domain.StatusConnecting,
	}
}

// Start begins supervising the endpoint. Calling Start while already running
// is equivalent to Stop followed by Start (endpoint change mid-session).
func (s *Supervisor) Start(endpoint domain.StreamEndpoint) {
	s.mu.Lock()
	if s.running {
		s.teardownLocked()
	}
	s.running = true
	s.endpoint = endpoint
	s.retryCount = 0
	s.lastError = ""
	snap := s.launchLocked()
	s.mu.Unlock()

	s.logger.Infow("supervisor started",
		"url", endpoint.URL,
		"transport", endpoint.Transport,
	)
	s.publish(snap)
}

// Stop tears down the active attempt and cancels all timers. No status change
// is emitted: the session is gone. Idempotent.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.teardownLocked()
	s.running = false
	s.logger.Infow("supervisor stopped", "url", s.endpoint.URL)
}

// Retry is the manual retry escape hatch. From error it replaces the pending
// automatic retry; from offline it resets the retry budget; from connecting or
// connected it restarts the in-flight attempt (manual reconnect).
func (s *Supervisor) Retry() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return domain.ErrRetryUnavailable
	}

	switch s.status {
	case domain.StatusError:
		// The pending automatic retry is replaced by this one.
		if s.retryTimer != nil {
			s.retryTimer.Stop()
			s.retryTimer = nil
		}
	case domain.StatusOffline:
		s.retryCount = 0
		s.lastError = ""
	}

	snap := s.launchLocked()
	transport := s.endpoint.Transport
	s.mu.Unlock()

	s.logger.Infow("manual retry", "transport", transport, "retry_count", snap.RetryCount)
	if s.metrics != nil {
		s.metrics.IncRetry(transport)
	}
	s.publish(snap)
	return nil
}

// OpenExternally returns the raw endpoint URL for opening outside the app.
// It never touches connection state.
func (s *Supervisor) OpenExternally() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint.URL
}

// Status returns the current status snapshot.
func (s *Supervisor) Status() domain.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// launchLocked starts a fresh attempt for the active transport and moves the
// status to connecting. Any still-live prior attempt is torn down first so at
// most one attempt exists at a time.
func (s *Supervisor) launchLocked() domain.StatusSnapshot {
	s.stopAttemptLocked()

	s.generation++
	gen := s.generation
	s.status = domain.StatusConnecting

	driver, ok := s.drivers[s.endpoint.Transport]
	if !ok {
		go s.handleFailure(gen, domain.ErrNoDriver.Error())
		return s.snapshotLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cb := ports.AttemptCallbacks{
		OnReady:   func(media ports.MediaHandle) { s.handleReady(gen, media) },
		OnFailure: func(reason string) { s.handleFailure(gen, reason) },
	}

	handle, err := driver.Start(ctx, s.endpoint, cb)
	if err != nil {
		cancel()
		go s.handleFailure(gen, err.Error())
		return s.snapshotLocked()
	}

	s.active = handle
	s.activeCancel = cancel
	if s.metrics != nil {
		s.metrics.IncAttempt(s.endpoint.Transport)
	}
	return s.snapshotLocked()
}

// handleReady is the driver readiness callback for the given generation.
func (s *Supervisor) handleReady(gen uint64, media ports.MediaHandle) {
	s.mu.Lock()
	if !s.running || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debugw("ignoring ready from superseded attempt", "generation", gen)
		return
	}

	s.status = domain.StatusConnected
	s.retryCount = 0
	s.lastError = ""
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	// Re-entering connected restarts the hide-controls timer.
	if s.hideTimer != nil {
		s.hideTimer.Stop()
	}
	s.hideTimer = time.AfterFunc(s.cfg.ControlsHideDelay, func() { s.fireControlsHide(gen) })

	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Infow("stream connected",
		"transport", media.Transport,
		"generation", gen,
	)
	s.publish(snap)
	if s.sink != nil {
		s.sink.OnMediaAttached(media)
	}
}

// handleFailure is the driver failure callback for the given generation. It
// covers both failed connects and mid-session drops.
func (s *Supervisor) handleFailure(gen uint64, reason string) {
	s.mu.Lock()
	if !s.running || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debugw("ignoring failure from superseded attempt",
			"generation", gen,
			"reason", reason,
		)
		return
	}

	s.stopAttemptTimersLocked()
	s.releaseAttemptLocked()
	// The attempt is gone: invalidate its generation so any further callback
	// from it (a queued ready, a second failure signal) is discarded. Each
	// attempt gets exactly one terminal outcome.
	s.generation++
	gen = s.generation
	s.lastError = reason

	if s.retryCount >= s.cfg.RetryLimit {
		// Retry budget exhausted: offline is terminal, nothing further is
		// scheduled. Only a manual retry leaves this state.
		s.status = domain.StatusOffline
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.logger.Warnw("retry budget exhausted, stream offline",
			"reason", reason,
			"retry_count", snap.RetryCount,
		)
		s.publish(snap)
		return
	}

	s.retryCount++
	s.status = domain.StatusError
	delay := s.cfg.Backoff.Delay(s.retryCount - 1)
	s.retryTimer = time.AfterFunc(delay, func() { s.autoRetry(gen) })

	snap := s.snapshotLocked()
	transport := s.endpoint.Transport
	s.mu.Unlock()

	s.logger.Warnw("stream attempt failed",
		"reason", reason,
		"transport", transport,
		"retry_count", snap.RetryCount,
		"retry_limit", snap.RetryLimit,
		"retry_in", delay,
	)
	s.publish(snap)
}

// autoRetry fires from the retry timer scheduled on failure of the given
// generation.
func (s *Supervisor) autoRetry(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.generation || s.status != domain.StatusError {
		s.mu.Unlock()
		return
	}
	s.retryTimer = nil
	snap := s.launchLocked()
	transport := s.endpoint.Transport
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncRetry(transport)
	}
	s.publish(snap)
}

// fireControlsHide emits the advisory hide-controls signal if the connection
// from the given generation is still up.
func (s *Supervisor) fireControlsHide(gen uint64) {
	s.mu.Lock()
	ok := s.running && gen == s.generation && s.status == domain.StatusConnected
	s.mu.Unlock()

	if ok && s.sink != nil {
		s.sink.OnControlsAutoHide()
	}
}

// teardownLocked invalidates every in-flight callback and releases the active
// attempt. Used on Stop and endpoint change.
func (s *Supervisor) teardownLocked() {
	s.stopAttemptLocked()
	s.generation++ // invalidate late callbacks from the old session
}

// stopAttemptLocked cancels timers and releases the active attempt.
func (s *Supervisor) stopAttemptLocked() {
	s.stopAttemptTimersLocked()
	s.releaseAttemptLocked()
}

func (s *Supervisor) stopAttemptTimersLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
}

func (s *Supervisor) releaseAttemptLocked() {
	if s.activeCancel != nil {
		s.activeCancel()
		s.activeCancel = nil
	}
	if s.active != nil {
		s.active.Stop()
		s.active = nil
	}
}

func (s *Supervisor) snapshotLocked() domain.StatusSnapshot {
	return domain.StatusSnapshot{
		Status:     s.status,
		Transport:  s.endpoint.Transport,
		RetryCount: s.retryCount,
		RetryLimit: s.cfg.RetryLimit,
		LastError:  s.lastError,
		Generation: s.generation,
		Timestamp:  time.Now(),
	}
}

func (s *Supervisor) publish(snap domain.StatusSnapshot) {
	if s.metrics != nil {
		s.metrics.SetConnectionStatus(snap.Status)
	}
	if s.sink != nil {
		s.sink.OnStatus(snap)
	}
}
