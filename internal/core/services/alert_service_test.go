package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"
	"vigilcam/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	name   string
	err    error
	events []*domain.CameraEvent
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Notify(_ context.Context, event *domain.CameraEvent) error {
	n.events = append(n.events, event)
	return n.err
}

func newAlertServiceAt(t *testing.T, clock *time.Time) (*AlertService, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{name: "test"}
	svc := NewAlertService(AlertConfig{
		MotionCooldown: 30 * time.Second,
		TypeCooldown:   60 * time.Second,
		DedupSize:      4,
	}, memory.NewEventRepository(), []ports.Notifier{notifier}, nil, nil)
	svc.now = func() time.Time { return *clock }
	return svc, notifier
}

func TestAlertService_IngestPersistsAndNotifies(t *testing.T) {
	clock := time.Now()
	svc, notifier := newAlertServiceAt(t, &clock)

	event, err := svc.Ingest(context.Background(), domain.DeviceAlert{
		DeviceID: "esp32-cam-01",
		Motion:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventMotion, event.Type)
	assert.Equal(t, domain.DeviceID("esp32-cam-01"), event.DeviceID)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, event.ID, notifier.events[0].ID)

	recent, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestAlertService_UltraCloseOverridesMotion(t *testing.T) {
	clock := time.Now()
	svc, _ := newAlertServiceAt(t, &clock)

	event, err := svc.Ingest(context.Background(), domain.DeviceAlert{
		DeviceID:   "esp32-cam-01",
		Motion:     true,
		UltraClose: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventUltraClose, event.Type)
}

func TestAlertService_MotionCooldownSuppresses(t *testing.T) {
	clock := time.Now()
	svc, notifier := newAlertServiceAt(t, &clock)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, domain.DeviceAlert{DeviceID: "cam", Motion: true, Message: "a"})
	require.NoError(t, err)

	// Different payload within the cooldown window is suppressed, not deduped.
	clock = clock.Add(10 * time.Second)
	_, err = svc.Ingest(ctx, domain.DeviceAlert{DeviceID: "cam", Motion: true, Message: "b"})
	assert.ErrorIs(t, err, domain.ErrAlertSuppressed)

	// Past the cooldown the same device may alert again.
	clock = clock.Add(25 * time.Second)
	_, err = svc.Ingest(ctx, domain.DeviceAlert{DeviceID: "cam", Motion: true, Message: "c"})
	require.NoError(t, err)

	assert.Len(t, notifier.events, 2)
}

func TestAlertService_ExactRetransmitIsDuplicate(t *testing.T) {
	clock := time.Now()
	svc, _ := newAlertServiceAt(t, &clock)
	ctx := context.Background()

	alert := domain.DeviceAlert{DeviceID: "cam", Motion: true, Message: "hallway"}
	_, err := svc.Ingest(ctx, alert)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Second)
	_, err = svc.Ingest(ctx, alert)
	assert.ErrorIs(t, err, domain.ErrDuplicateAlert)
}

func TestAlertService_CooldownIsPerDevice(t *testing.T) {
	clock := time.Now()
	svc, _ := newAlertServiceAt(t, &clock)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, domain.DeviceAlert{DeviceID: "cam-1", Motion: true})
	require.NoError(t, err)

	clock = clock.Add(time.Second)
	_, err = svc.Ingest(ctx, domain.DeviceAlert{DeviceID: "cam-2", Motion: true})
	require.NoError(t, err)
}

func TestAlertService_CooldownIsPerType(t *testing.T) {
	clock := time.Now()
	svc, _ := newAlertServiceAt(t, &clock)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, domain.DeviceAlert{DeviceID: "cam", Motion: true})
	require.NoError(t, err)

	// An ultra-close alert right after a motion alert must get through.
	clock = clock.Add(time.Second)
	_, err = svc.Ingest(ctx, domain.DeviceAlert{DeviceID: "cam", UltraClose: true})
	require.NoError(t, err)
}

func TestAlertService_NotifierFailureDoesNotFailIngest(t *testing.T) {
	clock := time.Now()
	svc, notifier := newAlertServiceAt(t, &clock)
	notifier.err = errors.New("push gateway down")

	event, err := svc.Ingest(context.Background(), domain.DeviceAlert{DeviceID: "cam", Motion: true})
	require.NoError(t, err)
	require.NotNil(t, event)

	_, err = svc.events.GetByID(context.Background(), event.ID)
	assert.NoError(t, err)
}
