package ports

import (
	"context"
	"time"

	"vigilcam/internal/core/domain"
)

// StatusSink receives supervisor output. Implementations must not call back
// into the supervisor from these methods.
type StatusSink interface {
	OnStatus(snapshot domain.StatusSnapshot)
	OnMediaAttached(media MediaHandle)
	// OnControlsAutoHide is the advisory signal to hide transient UI controls,
	// fired once per entry into the connected state.
	OnControlsAutoHide()
}

// Notifier delivers a persisted event to an external channel (push, SMS).
// Delivery is best-effort; the alert service logs failures and moves on.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event *domain.CameraEvent) error
}

// ConnectionMetrics records supervisor and negotiation telemetry.
type ConnectionMetrics interface {
	SetConnectionStatus(status domain.ConnectionStatus)
	IncAttempt(transport domain.TransportKind)
	IncRetry(transport domain.TransportKind)
	ObserveNegotiation(d time.Duration, ok bool)
	IncEvent(eventType domain.EventType)
}
