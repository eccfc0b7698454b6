package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateEventID generates a unique camera event ID
func GenerateEventID() string {
	return GenerateID("event")
}

// GenerateSessionID generates a unique session ID
func GenerateSessionID() string {
	return GenerateID("session")
}

// GenerateID generates a prefixed unique ID
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String())
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return fmt.Sprintf("req_%d_%s", time.Now().UnixNano(), uuid.New().String()[:8])
}
