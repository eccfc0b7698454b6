package notify

import (
	"context"

	"vigilcam/internal/core/domain"

	"go.uber.org/zap"
)

// LogNotifier is the default notification channel: it writes every ingested
// event to the structured log. Real push channels (FCM, SMS gateways) plug in
// next to it behind the same port.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, event *domain.CameraEvent) error {
	n.logger.Infow("camera alert",
		"event_id", event.ID,
		"device_id", event.DeviceID,
		"type", event.Type,
		"message", event.Message,
	)
	return nil
}
