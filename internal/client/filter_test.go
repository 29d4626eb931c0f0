package client

import (
	"testing"

	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name          string
		msgType       domain.MessageType
		alertsEnabled bool
		want          bool
	}{
		{"price update, alerts off", domain.MessagePriceUpdate, false, true},
		{"price update, alerts on", domain.MessagePriceUpdate, true, true},
		{"alert, alerts off", domain.MessageAlertTriggered, false, false},
		{"alert, alerts on", domain.MessageAlertTriggered, true, true},
		{"unknown type", domain.MessageType("STOCK_CHANGED"), true, false},
		{"empty type", domain.MessageType(""), true, false},
		{"lowercase is not a known type", domain.MessageType("price_update"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := domain.Envelope{Type: tt.msgType, Payload: []byte(`{}`)}
			prefs := domain.UserPreferences{AlertsEnabled: tt.alertsEnabled}
			assert.Equal(t, tt.want, Allow(env, prefs))
		})
	}
}
