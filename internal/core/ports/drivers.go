package ports

import (
	"context"

	"vigilcam/internal/core/domain"

	"github.com/pion/webrtc/v3"
)

// MediaHandle is what the UI renders once an attempt is connected.
// RemoteTrack is set only for the real-time transport; PlaybackURL is always
// set and points at the resource the viewer should load.
type MediaHandle struct {
	Transport   domain.TransportKind
	PlaybackURL string
	RemoteTrack *webrtc.TrackRemote
}

// AttemptCallbacks carry the terminal per-attempt outcomes back to the
// supervisor. Each callback may fire at most once per attempt, from the
// driver's own goroutine; the supervisor discards callbacks from superseded
// attempts by generation.
type AttemptCallbacks struct {
	// OnReady fires when the transport signals readiness: playlist loaded,
	// remote track attached, or embedded surface finished loading.
	OnReady func(media MediaHandle)
	// OnFailure fires when the attempt fails, with a human-readable reason.
	// It also fires for mid-session failures after OnReady.
	OnFailure func(reason string)
}

// AttemptHandle identifies one live attempt so it can be torn down.
type AttemptHandle interface {
	// Stop releases every resource the attempt holds. Idempotent. Events from
	// a stopped attempt must be discarded by the caller.
	Stop()
}

// AttemptDriver starts connection attempts for one transport kind. A returned
// error means the attempt could not even be constructed and is equivalent to
// an immediate OnFailure.
type AttemptDriver interface {
	Start(ctx context.Context, endpoint domain.StreamEndpoint, cb AttemptCallbacks) (AttemptHandle, error)
}
