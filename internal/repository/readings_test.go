package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"babycare-backend/internal/models"
)

func setupMockReadingsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ReadingsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewReadingsRepository(db, logger)

	return db, mock, repo
}

func readingColumns() []string {
	return []string{
		"id", "user_id", "temperature", "humidity", "audio_url",
		"cry_detected", "sick_detected", "notes", "created_at",
	}
}

func TestInsert_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	createdAt := time.Now()

	mock.ExpectQuery(`INSERT INTO health_data`).
		WithArgs(int64(1), 37.2, 55.0, nil, false, false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), createdAt))

	reading := &models.Reading{
		UserID:      1,
		Temperature: 37.2,
		Humidity:    55.0,
	}

	err := repo.Insert(ctx, reading)

	require.NoError(t, err)
	assert.Equal(t, int64(42), reading.ID)
	assert.Equal(t, createdAt, reading.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_InvalidUserID(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()

	err := repo.Insert(ctx, &models.Reading{UserID: 0})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "user_id is required")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DatabaseError(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO health_data`).
		WillReturnError(sql.ErrConnDone)

	err := repo.Insert(ctx, &models.Reading{UserID: 1, Temperature: 36.5, Humidity: 50})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert reading")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_DefaultLimit(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows(readingColumns()).
		AddRow(int64(2), int64(1), 36.8, 60.0, nil, false, false, nil, now).
		AddRow(int64(1), int64(1), 38.5, 82.0, "/uploads/audio_1_20260101_080000.wav", true, true, "fussy", now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(1), defaultHistoryLimit, 0).
		WillReturnRows(rows)

	readings, err := repo.ListByUser(ctx, 1, models.ReadingFilter{})

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, int64(2), readings[0].ID)
	assert.Nil(t, readings[0].AudioURL)
	require.NotNil(t, readings[1].AudioURL)
	assert.Equal(t, "/uploads/audio_1_20260101_080000.wav", *readings[1].AudioURL)
	require.NotNil(t, readings[1].Notes)
	assert.Equal(t, "fussy", *readings[1].Notes)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_ClampsLimit(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(1), maxHistoryLimit, 0).
		WillReturnRows(sqlmock.NewRows(readingColumns()))

	readings, err := repo.ListByUser(ctx, 1, models.ReadingFilter{Limit: 5000, Offset: -3})

	require.NoError(t, err)
	assert.Empty(t, readings)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_Filters(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	cry := true
	sick := false
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(7), cry, sick, start, end, 10, 20).
		WillReturnRows(sqlmock.NewRows(readingColumns()))

	_, err := repo.ListByUser(ctx, 7, models.ReadingFilter{
		Limit:        10,
		Offset:       20,
		CryDetected:  &cry,
		SickDetected: &sick,
		StartDate:    &start,
		EndDate:      &end,
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows(readingColumns()).
		AddRow(int64(9), int64(3), 38.1, 80.0, nil, true, true, nil, now)

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(9), int64(3)).
		WillReturnRows(rows)

	reading, err := repo.GetByID(ctx, 9, 3)

	require.NoError(t, err)
	assert.Equal(t, int64(9), reading.ID)
	assert.Equal(t, int64(3), reading.UserID)
	assert.True(t, reading.CryDetected)
	assert.True(t, reading.SickDetected)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(9), int64(3)).
		WillReturnError(sql.ErrNoRows)

	reading, err := repo.GetByID(ctx, 9, 3)

	assert.Nil(t, reading)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_WrongOwnerIsNotFound(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(9), int64(4)).
		WillReturnRows(sqlmock.NewRows(readingColumns()))

	reading, err := repo.GetByID(ctx, 9, 4)

	assert.Nil(t, reading)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatest_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows(readingColumns()).
		AddRow(int64(11), int64(5), 36.9, 48.0, nil, false, false, nil, now)

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	reading, err := repo.GetLatest(ctx, 5)

	require.NoError(t, err)
	assert.Equal(t, int64(11), reading.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	statsRows := sqlmock.NewRows([]string{
		"total_records", "cry_detected_count", "sick_detected_count", "avg_temperature", "avg_humidity",
	}).AddRow(int64(10), int64(3), int64(2), 36.84999, 51.255)

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(1)).
		WillReturnRows(statsRows)

	latestRows := sqlmock.NewRows(readingColumns()).
		AddRow(int64(10), int64(1), 37.0, 52.0, nil, false, false, nil, now)

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(1)).
		WillReturnRows(latestRows)

	stats, err := repo.Stats(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalRecords)
	assert.Equal(t, int64(3), stats.CryDetectedCount)
	assert.Equal(t, int64(2), stats.SickDetectedCount)
	assert.Equal(t, 36.85, stats.AvgTemperature)
	assert.Equal(t, 51.26, stats.AvgHumidity)
	require.NotNil(t, stats.LatestRecord)
	assert.Equal(t, int64(10), stats.LatestRecord.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_EmptyHistory(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()

	statsRows := sqlmock.NewRows([]string{
		"total_records", "cry_detected_count", "sick_detected_count", "avg_temperature", "avg_humidity",
	}).AddRow(int64(0), int64(0), int64(0), 0.0, 0.0)

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(1)).
		WillReturnRows(statsRows)

	mock.ExpectQuery(`SELECT .+ FROM health_data`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)

	stats, err := repo.Stats(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRecords)
	assert.Nil(t, stats.LatestRecord)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSeries_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	end := time.Now()
	start := end.Add(-7 * 24 * time.Hour)
	bucket := end.Truncate(time.Hour)

	rows := sqlmock.NewRows([]string{
		"bucket", "avg_temperature", "avg_humidity", "record_count", "cry_count", "sick_count",
	}).
		AddRow(bucket, 37.123, 55.678, int64(4), int64(1), int64(0)).
		AddRow(bucket.Add(-time.Hour), nil, nil, int64(0), int64(0), int64(0))

	mock.ExpectQuery(`time_bucket`).
		WithArgs("1 hour", int64(1), start, end).
		WillReturnRows(rows)

	buckets, err := repo.TimeSeries(ctx, 1, "1 hour", start, end)

	require.NoError(t, err)
	require.Len(t, buckets, 2)
	require.NotNil(t, buckets[0].AvgTemperature)
	assert.Equal(t, 37.12, *buckets[0].AvgTemperature)
	assert.Equal(t, 55.68, *buckets[0].AvgHumidity)
	assert.Equal(t, int64(4), buckets[0].RecordCount)
	assert.Nil(t, buckets[1].AvgTemperature)
	assert.Nil(t, buckets[1].AvgHumidity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSeries_MissingInterval(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()

	buckets, err := repo.TimeSeries(ctx, 1, "", time.Now(), time.Now())

	assert.Nil(t, buckets)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "interval is required")

	require.NoError(t, mock.ExpectationsWereMet())
}
