package domain

import (
	"time"
)

type EventID string
type DeviceID string
type EventType string

const (
	EventMotion     EventType = "motion"
	EventUltraClose EventType = "ultra_close"
)

// DeviceAlert is the raw alert payload posted by a sensor device.
type DeviceAlert struct {
	DeviceID   DeviceID
	Motion     bool
	UltraClose bool
	// AlertType optionally overrides the derived type, for example a
	// familiar-face match reported by the camera host.
	AlertType    string
	Message      string
	ThumbnailURL string
}

// EventTypeOf maps an alert payload to the stored event type.
func (a DeviceAlert) EventTypeOf() EventType {
	if a.AlertType != "" {
		return EventType(a.AlertType)
	}
	if a.UltraClose {
		return EventUltraClose
	}
	return EventMotion
}

// CameraEvent is a persisted camera/sensor event shown in the alert feed.
type CameraEvent struct {
	ID           EventID   `json:"id"`
	DeviceID     DeviceID  `json:"device_id"`
	Type         EventType `json:"type"`
	Message      string    `json:"message,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
