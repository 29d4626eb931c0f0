package domain

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBangla  Language = "bn"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// AlertEvent is the payload of ALERT_TRIGGERED. Every occurrence is distinct.
type AlertEvent struct {
	ID           string   `json:"id"`
	ProductID    string   `json:"productId"`
	CompetitorID string   `json:"competitorId"`
	Message      string   `json:"message"`
	Language     Language `json:"language"`
	Severity     Severity `json:"severity"`
}

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageBangla
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}
