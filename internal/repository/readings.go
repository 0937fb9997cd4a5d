package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"babycare-backend/internal/models"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// ReadingsRepository persists sensor readings in the health_data table.
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository creates a readings repository.
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores one reading. The store assigns id and created_at; both are
// written back into reading before it is returned.
func (r *ReadingsRepository) Insert(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if reading.UserID <= 0 {
		return fmt.Errorf("user_id is required")
	}

	query := `
		INSERT INTO health_data (
			user_id,
			temperature,
			humidity,
			audio_url,
			cry_detected,
			sick_detected,
			notes,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		reading.UserID,
		reading.Temperature,
		reading.Humidity,
		reading.AudioURL,
		reading.CryDetected,
		reading.SickDetected,
		reading.Notes,
	).Scan(&reading.ID, &reading.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// ListByUser returns a user's readings, most recent first.
func (r *ReadingsRepository) ListByUser(ctx context.Context, userID int64, filter models.ReadingFilter) ([]models.Reading, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argN := 2

	if filter.CryDetected != nil {
		conditions = append(conditions, fmt.Sprintf("cry_detected = $%d", argN))
		args = append(args, *filter.CryDetected)
		argN++
	}
	if filter.SickDetected != nil {
		conditions = append(conditions, fmt.Sprintf("sick_detected = $%d", argN))
		args = append(args, *filter.SickDetected)
		argN++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argN))
		args = append(args, *filter.StartDate)
		argN++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argN))
		args = append(args, *filter.EndDate)
		argN++
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, temperature, humidity, audio_url, cry_detected, sick_detected, notes, created_at
		FROM health_data
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}

// GetByID returns one reading scoped to its owner, or ErrNotFound.
func (r *ReadingsRepository) GetByID(ctx context.Context, id, userID int64) (*models.Reading, error) {
	if id <= 0 {
		return nil, fmt.Errorf("id is required")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT id, user_id, temperature, humidity, audio_url, cry_detected, sick_detected, notes, created_at
		FROM health_data
		WHERE id = $1 AND user_id = $2
	`

	reading, err := scanReading(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return reading, nil
}

// GetLatest returns a user's most recent reading, or ErrNotFound.
func (r *ReadingsRepository) GetLatest(ctx context.Context, userID int64) (*models.Reading, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT id, user_id, temperature, humidity, audio_url, cry_detected, sick_detected, notes, created_at
		FROM health_data
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	reading, err := scanReading(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return reading, nil
}

// Stats returns the summary counters for one user plus the latest record.
func (r *ReadingsRepository) Stats(ctx context.Context, userID int64) (*models.ReadingStats, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT
			COUNT(*) AS total_records,
			COUNT(*) FILTER (WHERE cry_detected) AS cry_detected_count,
			COUNT(*) FILTER (WHERE sick_detected) AS sick_detected_count,
			COALESCE(AVG(temperature), 0) AS avg_temperature,
			COALESCE(AVG(humidity), 0) AS avg_humidity
		FROM health_data
		WHERE user_id = $1
	`

	stats := &models.ReadingStats{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalRecords,
		&stats.CryDetectedCount,
		&stats.SickDetectedCount,
		&stats.AvgTemperature,
		&stats.AvgHumidity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get reading stats: %w", err)
	}

	stats.AvgTemperature = round2(stats.AvgTemperature)
	stats.AvgHumidity = round2(stats.AvgHumidity)

	latest, err := r.GetLatest(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	stats.LatestRecord = latest

	return stats, nil
}

// TimeSeries returns fixed-width aggregation windows of a user's readings,
// newest bucket first. Relies on the store's time_bucket function.
func (r *ReadingsRepository) TimeSeries(ctx context.Context, userID int64, interval string, start, end time.Time) ([]models.TimeBucket, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}

	query := `
		SELECT
			time_bucket($1::interval, created_at) AS bucket,
			AVG(temperature) AS avg_temperature,
			AVG(humidity) AS avg_humidity,
			COUNT(*) AS record_count,
			SUM(CASE WHEN cry_detected THEN 1 ELSE 0 END) AS cry_count,
			SUM(CASE WHEN sick_detected THEN 1 ELSE 0 END) AS sick_count
		FROM health_data
		WHERE user_id = $2
		  AND created_at >= $3
		  AND created_at <= $4
		GROUP BY bucket
		ORDER BY bucket DESC
	`

	rows, err := r.db.QueryContext(ctx, query, interval, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query time series: %w", err)
	}
	defer rows.Close()

	buckets := []models.TimeBucket{}
	for rows.Next() {
		var bucket models.TimeBucket
		var avgTemp, avgHumidity sql.NullFloat64

		if err := rows.Scan(
			&bucket.Time,
			&avgTemp,
			&avgHumidity,
			&bucket.RecordCount,
			&bucket.CryCount,
			&bucket.SickCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan time bucket: %w", err)
		}

		if avgTemp.Valid {
			v := round2(avgTemp.Float64)
			bucket.AvgTemperature = &v
		}
		if avgHumidity.Valid {
			v := round2(avgHumidity.Float64)
			bucket.AvgHumidity = &v
		}

		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time buckets: %w", err)
	}

	return buckets, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(row rowScanner) (*models.Reading, error) {
	var reading models.Reading
	var audioURL, notes sql.NullString

	err := row.Scan(
		&reading.ID,
		&reading.UserID,
		&reading.Temperature,
		&reading.Humidity,
		&audioURL,
		&reading.CryDetected,
		&reading.SickDetected,
		&notes,
		&reading.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan reading: %w", err)
	}

	if audioURL.Valid {
		reading.AudioURL = &audioURL.String
	}
	if notes.Valid {
		reading.Notes = &notes.String
	}

	return &reading, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
