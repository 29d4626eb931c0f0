// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (envelope.go, price.go, alert.go, preferences.go, etc.)
// with shared types and cross-cutting interfaces. No I/O - just contracts and small value helpers.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
