package ports

import (
	"context"
	"time"

	"vigilcam/internal/core/domain"
)

type EventRepository interface {
	Save(ctx context.Context, event *domain.CameraEvent) error
	GetByID(ctx context.Context, id domain.EventID) (*domain.CameraEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.CameraEvent, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}
