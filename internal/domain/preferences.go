package domain

import "slices"

// UserPreferences is read-only to the distribution core.
type UserPreferences struct {
	AlertsEnabled    bool
	MutedCompetitors []string
}

func (p UserPreferences) IsMuted(competitorID string) bool {
	return slices.Contains(p.MutedCompetitors, competitorID)
}

// PreferencesProvider supplies the current preferences of a dashboard user.
type PreferencesProvider interface {
	Preferences() UserPreferences
}

// StaticPreferences is a PreferencesProvider that never changes.
type StaticPreferences UserPreferences

func (s StaticPreferences) Preferences() UserPreferences {
	return UserPreferences(s)
}
