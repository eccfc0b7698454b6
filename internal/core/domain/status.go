package domain

import (
	"time"
)

// ConnectionStatus is the externally observed state of the supervised stream
// connection.
type ConnectionStatus string

const (
	StatusConnecting ConnectionStatus = "connecting"
	StatusConnected  ConnectionStatus = "connected"
	StatusError      ConnectionStatus = "error"
	// StatusOffline is terminal: the retry budget is exhausted and only an
	// explicit manual retry resumes attempts.
	StatusOffline ConnectionStatus = "offline"
)

// StatusSnapshot is one observation of the supervisor state, published on
// every transition.
type StatusSnapshot struct {
	Status     ConnectionStatus `json:"status"`
	Transport  TransportKind    `json:"transport"`
	RetryCount int              `json:"retry_count"`
	RetryLimit int              `json:"retry_limit"`
	LastError  string           `json:"last_error,omitempty"`
	Generation uint64           `json:"generation"`
	Timestamp  time.Time        `json:"timestamp"`
}
