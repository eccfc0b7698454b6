package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"
	"vigilcam/pkg/tracing"
	"vigilcam/pkg/utils"

	"go.uber.org/zap"
)

// AlertConfig holds the alert ingestion tunables.
type AlertConfig struct {
	// MotionCooldown suppresses repeat motion alerts from the same device.
	MotionCooldown time.Duration
	// TypeCooldown suppresses repeat alerts of any other type.
	TypeCooldown time.Duration
	// DedupSize bounds the recent-payload set used to drop exact retransmits.
	DedupSize int
}

// DefaultAlertConfig returns the alert service defaults.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		MotionCooldown: 30 * time.Second,
		TypeCooldown:   60 * time.Second,
		DedupSize:      128,
	}
}

// AlertService turns raw device alerts into persisted camera events. Devices
// on flaky Wi-Fi retransmit aggressively, so ingestion applies two filters
// before persisting: an exact-payload dedup set and a per-device, per-type
// cooldown.
type AlertService struct {
	cfg       AlertConfig
	events    ports.EventRepository
	notifiers []ports.Notifier
	metrics   ports.ConnectionMetrics
	logger    *zap.SugaredLogger
	now       func() time.Time

	mu        sync.Mutex
	lastByKey map[string]time.Time
	seen      map[string]time.Time
	seenOrder []string
}

// NewAlertService creates an alert service. notifiers and metrics may be nil.
func NewAlertService(
	cfg AlertConfig,
	events ports.EventRepository,
	notifiers []ports.Notifier,
	metrics ports.ConnectionMetrics,
	logger *zap.SugaredLogger,
) *AlertService {
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = DefaultAlertConfig().DedupSize
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AlertService{
		cfg:       cfg,
		events:    events,
		notifiers: notifiers,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		lastByKey: make(map[string]time.Time),
		seen:      make(map[string]time.Time),
	}
}

// Ingest processes one device alert. Suppressed and duplicate alerts return
// ErrAlertSuppressed and ErrDuplicateAlert respectively; both are expected
// outcomes, not failures.
func (s *AlertService) Ingest(ctx context.Context, alert domain.DeviceAlert) (*domain.CameraEvent, error) {
	ctx, span := tracing.TraceAlertIngest(ctx, string(alert.DeviceID))
	defer span.End()

	eventType := alert.EventTypeOf()
	now := s.now()

	if err := s.admit(alert, eventType, now); err != nil {
		s.logger.Debugw("alert filtered",
			"device_id", alert.DeviceID,
			"type", eventType,
			"reason", err,
		)
		return nil, err
	}

	event := &domain.CameraEvent{
		ID:           domain.EventID(utils.GenerateEventID()),
		DeviceID:     alert.DeviceID,
		Type:         eventType,
		Message:      alert.Message,
		ThumbnailURL: alert.ThumbnailURL,
		CreatedAt:    now,
	}

	if err := s.events.Save(ctx, event); err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to persist event: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncEvent(eventType)
	}
	s.logger.Infow("camera event ingested",
		"event_id", event.ID,
		"device_id", event.DeviceID,
		"type", event.Type,
	)

	// Delivery is best-effort: a dead push channel must not fail ingestion.
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			s.logger.Warnw("notifier delivery failed",
				"notifier", n.Name(),
				"event_id", event.ID,
				"error", err,
			)
		}
	}

	return event, nil
}

// Recent returns up to limit events, newest first.
func (s *AlertService) Recent(ctx context.Context, limit int) ([]*domain.CameraEvent, error) {
	return s.events.ListRecent(ctx, limit)
}

// admit applies the dedup and cooldown filters and, on success, records the
// alert so the next identical one is filtered.
func (s *AlertService) admit(alert domain.DeviceAlert, eventType domain.EventType, now time.Time) error {
	cooldown := s.cooldownFor(eventType)
	fingerprint := fmt.Sprintf("%s|%s|%s|%s", alert.DeviceID, eventType, alert.Message, alert.ThumbnailURL)
	cooldownKey := fmt.Sprintf("%s|%s", alert.DeviceID, eventType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.seen[fingerprint]; ok && now.Sub(last) < cooldown {
		return domain.ErrDuplicateAlert
	}
	if last, ok := s.lastByKey[cooldownKey]; ok && now.Sub(last) < cooldown {
		return domain.ErrAlertSuppressed
	}

	s.lastByKey[cooldownKey] = now
	s.rememberLocked(fingerprint, now)
	return nil
}

func (s *AlertService) cooldownFor(eventType domain.EventType) time.Duration {
	if eventType == domain.EventMotion {
		return s.cfg.MotionCooldown
	}
	return s.cfg.TypeCooldown
}

// rememberLocked inserts into the bounded dedup set, evicting oldest-first.
func (s *AlertService) rememberLocked(fingerprint string, now time.Time) {
	if _, ok := s.seen[fingerprint]; !ok {
		s.seenOrder = append(s.seenOrder, fingerprint)
		for len(s.seenOrder) > s.cfg.DedupSize {
			evicted := s.seenOrder[0]
			s.seenOrder = s.seenOrder[1:]
			delete(s.seen, evicted)
		}
	}
	s.seen[fingerprint] = now
}
