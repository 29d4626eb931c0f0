package domain

import (
	"encoding/json"
	"time"
)

// MessageType tags the payload carried by an Envelope.
type MessageType string

const (
	MessagePriceUpdate    MessageType = "PRICE_UPDATE"
	MessageAlertTriggered MessageType = "ALERT_TRIGGERED"
)

// TimestampLayout renders UTC instants with millisecond precision ("2024-06-01T10:00:00.000Z").
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the wire message sent to dashboard clients.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// FormatTimestamp renders t in the envelope timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// timestampLayouts are the ISO-8601 forms producers send, tried in order.
// Zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. It only orders events; identity
// still compares the raw strings.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}
