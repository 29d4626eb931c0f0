package client

import "github.com/saif7218/zk-marketwatch/internal/domain"

// Allow reports whether env should reach the application layer.
// Price updates always pass, alerts only when enabled, and unknown types never do.
func Allow(env domain.Envelope, prefs domain.UserPreferences) bool {
	switch env.Type {
	case domain.MessagePriceUpdate:
		return true
	case domain.MessageAlertTriggered:
		return prefs.AlertsEnabled
	default:
		return false
	}
}
