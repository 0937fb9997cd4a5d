package models

import (
	"time"
)

// Reading is one persisted sensor sample (health_data table).
type Reading struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Temperature  float64   `json:"temperature" db:"temperature"`
	Humidity     float64   `json:"humidity" db:"humidity"`
	AudioURL     *string   `json:"audio_url,omitempty" db:"audio_url"`
	CryDetected  bool      `json:"cry_detected" db:"cry_detected"`
	SickDetected bool      `json:"sick_detected" db:"sick_detected"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ReadingFilter narrows history queries. Nil pointer fields are ignored.
type ReadingFilter struct {
	Limit        int
	Offset       int
	CryDetected  *bool
	SickDetected *bool
	StartDate    *time.Time
	EndDate      *time.Time
}

// ReadingStats is the per-user summary (overview, not chart data).
type ReadingStats struct {
	TotalRecords      int64    `json:"total_records"`
	CryDetectedCount  int64    `json:"cry_detected_count"`
	SickDetectedCount int64    `json:"sick_detected_count"`
	AvgTemperature    float64  `json:"avg_temperature"`
	AvgHumidity       float64  `json:"avg_humidity"`
	LatestRecord      *Reading `json:"latest_record,omitempty"`
}

// TimeBucket is one fixed-width aggregation window of a user's readings.
type TimeBucket struct {
	Time           time.Time `json:"time" db:"time_bucket"`
	AvgTemperature *float64  `json:"avg_temperature" db:"avg_temperature"`
	AvgHumidity    *float64  `json:"avg_humidity" db:"avg_humidity"`
	RecordCount    int64     `json:"record_count" db:"record_count"`
	CryCount       int64     `json:"cry_count" db:"cry_count"`
	SickCount      int64     `json:"sick_count" db:"sick_count"`
}
