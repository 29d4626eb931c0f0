package domain

import (
	"fmt"
	"math"
)

// Validate checks a price event before it is broadcast.
func (e PriceEvent) Validate() error {
	switch {
	case e.ProductID == "":
		return fmt.Errorf("%w: productId is required", ErrInvalidEvent)
	case e.CompetitorID == "":
		return fmt.Errorf("%w: competitorId is required", ErrInvalidEvent)
	case math.IsNaN(e.Price) || math.IsInf(e.Price, 0) || e.Price < 0:
		return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidEvent)
	}
	if _, err := ParseTimestamp(e.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrInvalidEvent, e.Timestamp)
	}
	return nil
}

// Validate checks an alert before it is broadcast. Empty language and severity
// are allowed; callers fill in defaults.
func (a AlertEvent) Validate() error {
	switch {
	case a.ProductID == "":
		return fmt.Errorf("%w: productId is required", ErrInvalidEvent)
	case a.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidEvent)
	case a.Language != "" && !a.Language.Valid():
		return fmt.Errorf("%w: language %q must be en or bn", ErrInvalidEvent, a.Language)
	case a.Severity != "" && !a.Severity.Valid():
		return fmt.Errorf("%w: severity %q must be info, warning or error", ErrInvalidEvent, a.Severity)
	}
	return nil
}
