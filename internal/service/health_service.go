package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"babycare-backend/internal/alert"
	"babycare-backend/internal/cache"
	"babycare-backend/internal/models"
	"babycare-backend/internal/repository"
	"babycare-backend/internal/ws"

	"go.uber.org/zap"
)

// UploadInput is one interactive reading submission, already range-checked by
// the transport layer.
type UploadInput struct {
	Temperature   float64
	Humidity      float64
	Notes         *string
	AudioFilename string
	Audio         []byte
}

// IngestResult is the outcome of one ingested reading.
type IngestResult struct {
	Reading models.Reading `json:"reading"`
	Alert   alert.Message  `json:"alert"`
}

// HealthService runs the reading pipeline and serves stored history.
type HealthService interface {
	IngestUpload(ctx context.Context, userID int64, input UploadInput) (*IngestResult, error)
	IngestSensorSample(ctx context.Context, sample models.SensorSample) (*IngestResult, error)
	History(ctx context.Context, userID int64, filter models.ReadingFilter) ([]models.Reading, error)
	GetReading(ctx context.Context, id, userID int64) (*models.Reading, error)
	Latest(ctx context.Context, userID int64) (*models.Reading, error)
	Stats(ctx context.Context, userID int64) (*models.ReadingStats, error)
	TimeSeries(ctx context.Context, userID int64, interval string, start, end time.Time) ([]models.TimeBucket, error)
}

type healthService struct {
	readings    *repository.ReadingsRepository
	registry    *ws.Registry
	classifier  Classifier
	audioStore  *AudioStore
	latestCache *cache.LatestReadingCache
	logger      *zap.Logger
}

// NewHealthService creates the health service.
func NewHealthService(
	readings *repository.ReadingsRepository,
	registry *ws.Registry,
	classifier Classifier,
	audioStore *AudioStore,
	latestCache *cache.LatestReadingCache,
	logger *zap.Logger,
) HealthService {
	return &healthService{
		readings:    readings,
		registry:    registry,
		classifier:  classifier,
		audioStore:  audioStore,
		latestCache: latestCache,
		logger:      logger,
	}
}

// IngestUpload runs the interactive pipeline: store the clip, classify it,
// persist the reading, then push the derived alert to the owner's sessions.
func (s *healthService) IngestUpload(ctx context.Context, userID int64, input UploadInput) (*IngestResult, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}

	reading := &models.Reading{
		UserID:      userID,
		Temperature: input.Temperature,
		Humidity:    input.Humidity,
		Notes:       input.Notes,
	}

	if len(input.Audio) > 0 {
		audioURL, err := s.audioStore.Save(userID, input.AudioFilename, input.Audio)
		if err != nil {
			return nil, err
		}
		reading.AudioURL = &audioURL

		// The classifier is a separate service. When it is down the reading
		// still goes through, just without cry detection.
		classification, err := s.classifier.Classify(ctx, input.AudioFilename, input.Audio)
		if err != nil {
			s.logger.Warn("Audio classification failed, recording without cry detection",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		} else {
			reading.CryDetected = classification.IsCry()
		}
	}

	return s.persistAndPublish(ctx, reading)
}

// IngestSensorSample runs the passive pipeline for one decoded sensor sample.
func (s *healthService) IngestSensorSample(ctx context.Context, sample models.SensorSample) (*IngestResult, error) {
	if sample.UserID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}

	reading := &models.Reading{
		UserID:      sample.UserID,
		Temperature: sample.Temperature,
		Humidity:    sample.Humidity,
		CryDetected: sample.CryDetected,
	}
	if sample.Notes != "" {
		notes := sample.Notes
		reading.Notes = &notes
	}

	return s.persistAndPublish(ctx, reading)
}

// persistAndPublish finishes the pipeline shared by both adapters. The store
// write is the only fatal step; push and cache failures are logged and the
// reading is still accepted.
func (s *healthService) persistAndPublish(ctx context.Context, reading *models.Reading) (*IngestResult, error) {
	reading.SickDetected = alert.IsFever(reading.Temperature)

	if err := s.readings.Insert(ctx, reading); err != nil {
		return nil, err
	}

	message := alert.Derive(*reading)
	delivered := s.registry.DeliverToUser(reading.UserID, message)

	s.logger.Info("Ingested reading",
		zap.Int64("user_id", reading.UserID),
		zap.Int64("reading_id", reading.ID),
		zap.String("event", message.Event),
		zap.String("severity", string(message.Severity)),
		zap.Int("sessions_notified", delivered),
	)

	if err := s.latestCache.Update(ctx, reading); err != nil {
		s.logger.Warn("Failed to update latest reading cache",
			zap.Int64("user_id", reading.UserID),
			zap.Error(err),
		)
	}

	return &IngestResult{Reading: *reading, Alert: message}, nil
}

// History returns a page of a user's readings, newest first.
func (s *healthService) History(ctx context.Context, userID int64, filter models.ReadingFilter) ([]models.Reading, error) {
	return s.readings.ListByUser(ctx, userID, filter)
}

// GetReading returns one reading scoped to its owner.
func (s *healthService) GetReading(ctx context.Context, id, userID int64) (*models.Reading, error) {
	return s.readings.GetByID(ctx, id, userID)
}

// Latest returns a user's most recent reading, preferring the cache.
func (s *healthService) Latest(ctx context.Context, userID int64) (*models.Reading, error) {
	cached, err := s.latestCache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Latest reading cache unavailable, falling back to store",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	reading, err := s.readings.GetLatest(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.latestCache.Update(ctx, reading); err != nil {
		s.logger.Warn("Failed to warm latest reading cache",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	return reading, nil
}

// Stats returns a user's aggregate counters.
func (s *healthService) Stats(ctx context.Context, userID int64) (*models.ReadingStats, error) {
	return s.readings.Stats(ctx, userID)
}

// TimeSeries returns bucketed aggregates for charting clients.
func (s *healthService) TimeSeries(ctx context.Context, userID int64, interval string, start, end time.Time) ([]models.TimeBucket, error) {
	return s.readings.TimeSeries(ctx, userID, interval, start, end)
}
