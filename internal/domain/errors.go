package domain

import "errors"

var (
	ErrRegistryStopped    = errors.New("connection registry stopped")
	ErrProductMismatch    = errors.New("event belongs to another product")
	ErrInvalidTimestamp   = errors.New("invalid ISO-8601 timestamp")
	ErrHistoryUnavailable = errors.New("price history unavailable")
	ErrControllerStopped  = errors.New("connection controller stopped")
)

// ErrInvalidEvent marks an ingress event that failed validation.
var ErrInvalidEvent = errors.New("invalid event")
