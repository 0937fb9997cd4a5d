package models

import (
	"encoding/json"
)

// SensorMessage is the raw sensor-feed payload as published on the MQTT topic.
// Temperature and Humidity are kept raw because the device emits either a
// number or the literal sentinel string "Err" when that sensor failed.
type SensorMessage struct {
	FinalResult string          `json:"FinalResult"`
	InfantCry   json.RawMessage `json:"InfantCry,omitempty"`
	Snoring     json.RawMessage `json:"Snoring,omitempty"`
	Temperature json.RawMessage `json:"Temperature,omitempty"`
	Humidity    json.RawMessage `json:"Humidity,omitempty"`
	UserID      *int64          `json:"user_id,omitempty"`
}

// SensorSample is a normalized sensor observation ready for ingestion.
// CryDetected is already decided upstream, so the classifier is not consulted.
type SensorSample struct {
	UserID      int64
	Temperature float64
	Humidity    float64
	CryDetected bool
	Notes       string
}
