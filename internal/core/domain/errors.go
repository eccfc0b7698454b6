package domain

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrNoLocalDescription = errors.New("no local description produced")
	ErrNoDriver           = errors.New("no driver registered for transport")
	ErrRetryUnavailable   = errors.New("retry not available in current state")
	ErrAlertSuppressed    = errors.New("alert suppressed by cooldown")
	ErrDuplicateAlert     = errors.New("duplicate alert")
)
