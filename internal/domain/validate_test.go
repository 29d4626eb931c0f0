package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceEvent_Validate(t *testing.T) {
	valid := PriceEvent{ProductID: "p1", CompetitorID: "c1", Price: 10, Timestamp: "2024-01-01T00:00:00Z"}

	tests := []struct {
		name   string
		mutate func(*PriceEvent)
		ok     bool
	}{
		{"valid", func(*PriceEvent) {}, true},
		{"zero price", func(e *PriceEvent) { e.Price = 0 }, true},
		{"offset timestamp", func(e *PriceEvent) { e.Timestamp = "2024-01-01T06:00:00.123+06:00" }, true},
		{"zone-less timestamp", func(e *PriceEvent) { e.Timestamp = "2024-06-01T10:00:00" }, true},
		{"zone-less fractional timestamp", func(e *PriceEvent) { e.Timestamp = "2024-06-01T10:00:00.123456" }, true},
		{"basic offset timestamp", func(e *PriceEvent) { e.Timestamp = "2024-06-01T10:00:00+0600" }, true},
		{"date-only timestamp", func(e *PriceEvent) { e.Timestamp = "2024-06-01" }, true},
		{"missing product", func(e *PriceEvent) { e.ProductID = "" }, false},
		{"missing competitor", func(e *PriceEvent) { e.CompetitorID = "" }, false},
		{"negative price", func(e *PriceEvent) { e.Price = -1 }, false},
		{"NaN price", func(e *PriceEvent) { e.Price = math.NaN() }, false},
		{"bad timestamp", func(e *PriceEvent) { e.Timestamp = "01/01/2024" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := valid
			tt.mutate(&ev)
			err := ev.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidEvent)
			}
		})
	}
}

func TestAlertEvent_Validate(t *testing.T) {
	valid := AlertEvent{ProductID: "p1", CompetitorID: "c1", Message: "price dropped"}

	tests := []struct {
		name   string
		mutate func(*AlertEvent)
		ok     bool
	}{
		{"defaults left empty", func(*AlertEvent) {}, true},
		{"bangla error", func(a *AlertEvent) { a.Language, a.Severity = LanguageBangla, SeverityError }, true},
		{"missing product", func(a *AlertEvent) { a.ProductID = "" }, false},
		{"missing message", func(a *AlertEvent) { a.Message = "" }, false},
		{"unknown language", func(a *AlertEvent) { a.Language = "fr" }, false},
		{"unknown severity", func(a *AlertEvent) { a.Severity = "critical" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			err := a.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidEvent)
			}
		})
	}
}
