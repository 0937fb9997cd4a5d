package alert

import (
	"babycare-backend/internal/models"
)

// Severity is the ordinal alert level carried by every push message.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event kinds pushed to connected clients.
const (
	EventHealthUpdate  = "HEALTH_UPDATE"
	EventCryDetected   = "CRY_DETECTED"
	EventFeverAlert    = "FEVER_ALERT"
	EventHumidityAlert = "HUMIDITY_ALERT"
	EventDiaperAlert   = "DIAPER_ALERT"
	EventCriticalAlert = "CRITICAL_ALERT"
)

// Derivation thresholds. Fixed values, not configuration.
const (
	// FeverThreshold marks a reading as sick at creation time (temperature >= threshold).
	FeverThreshold = 38.0
	// HumidityAttentionThreshold marks possible soiling (humidity strictly above threshold).
	HumidityAttentionThreshold = 79.0
)

// Message is the payload delivered to a user's live channels for one reading.
// It is transient: derived, pushed, and never persisted separately.
type Message struct {
	Event    string         `json:"event"`
	Severity Severity       `json:"severity"`
	Alert    string         `json:"alert,omitempty"`
	Data     models.Reading `json:"data"`
}

// Derive maps one reading to its alert message. Pure function, first match wins.
func Derive(reading models.Reading) Message {
	needsAttention := reading.Humidity > HumidityAttentionThreshold

	msg := Message{
		Event:    EventHealthUpdate,
		Severity: SeverityNone,
		Data:     reading,
	}

	switch {
	case reading.SickDetected && reading.CryDetected:
		msg.Event = EventCriticalAlert
		msg.Severity = SeverityCritical
		msg.Alert = "Baby has a fever and is crying! Check immediately!"
	case needsAttention && reading.CryDetected:
		msg.Event = EventDiaperAlert
		msg.Severity = SeverityWarning
		msg.Alert = "Baby may need a diaper change: high humidity and crying."
	case needsAttention:
		msg.Event = EventHumidityAlert
		msg.Severity = SeverityInfo
		msg.Alert = "High humidity detected. Baby may need a diaper change."
	case reading.SickDetected:
		msg.Event = EventFeverAlert
		msg.Severity = SeverityWarning
		msg.Alert = "Baby has a fever! Temperature reached 38°C or above."
	case reading.CryDetected:
		msg.Event = EventCryDetected
		msg.Severity = SeverityInfo
		msg.Alert = "Baby is crying."
	}

	return msg
}

// IsFever reports whether a temperature crosses the fever threshold.
func IsFever(temperature float64) bool {
	return temperature >= FeverThreshold
}
