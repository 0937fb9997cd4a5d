package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"babycare-backend/internal/config"
	"babycare-backend/internal/models"
	"babycare-backend/internal/mqtt"
	"babycare-backend/internal/service"
)

const (
	// Value a failed sensor publishes instead of a number.
	sensorErrValue = "Err"

	// Fallbacks when exactly one sensor failed. Both failing invalidates
	// the whole reading instead.
	defaultTemperature = 25.0
	defaultHumidity    = 50.0

	// FinalResult value the on-device classifier emits for crying,
	// matched case-insensitively.
	cryResult = "INFANTCRY"

	sensorNotes = "Auto-uploaded from MQTT sensor"

	metricsReportInterval = 60 * time.Second
)

// SensorConsumer subscribes to the sensor feed and funnels normalized samples
// through a bounded queue into the ingestion pipeline. The broker callback
// only parses and enqueues; database and WebSocket work happens on the
// workers so a slow database never stalls the MQTT receive loop.
type SensorConsumer struct {
	config     *config.Config
	mqttClient *mqtt.Client
	health     service.HealthService
	metrics    *Metrics
	logger     *zap.Logger

	queue chan models.SensorSample
	wg    sync.WaitGroup
}

// NewSensorConsumer creates the consumer with its queue sized from config.
func NewSensorConsumer(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	health service.HealthService,
	logger *zap.Logger,
) *SensorConsumer {
	return &SensorConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		health:     health,
		metrics:    &Metrics{StartTime: time.Now()},
		logger:     logger,
		queue:      make(chan models.SensorSample, cfg.Ingest.QueueSize),
	}
}

// Start subscribes to the sensor topic and runs the ingest workers until ctx
// is canceled. In-flight samples finish; queued ones are dropped on shutdown.
func (c *SensorConsumer) Start(ctx context.Context) error {
	topic := c.config.MQTT.Topic
	if topic == "" {
		return fmt.Errorf("sensor MQTT topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	workers := c.config.Ingest.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}

	go c.reportMetrics(ctx)

	c.logger.Info("Sensor consumer started",
		zap.String("topic", topic),
		zap.Int("workers", workers),
		zap.Int("queue_size", c.config.Ingest.QueueSize),
	)

	<-ctx.Done()
	c.wg.Wait()
	return nil
}

// Stop unsubscribes from the sensor topic.
func (c *SensorConsumer) Stop(ctx context.Context) error {
	topic := c.config.MQTT.Topic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	snapshot := c.metrics.GetSnapshot()
	c.logger.Info("Sensor consumer stopped",
		zap.Int64("messages_received", snapshot.MessagesReceived),
		zap.Int64("samples_saved", snapshot.SamplesSaved),
	)
	return nil
}

// handleMessage runs on the broker receive goroutine, so it must not block.
func (c *SensorConsumer) handleMessage(topic string, payload []byte) error {
	c.metrics.IncrementReceived()

	var msg models.SensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.metrics.IncrementSkipped()
		c.logger.Error("Failed to unmarshal sensor message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	sample, err := c.normalize(&msg)
	if err != nil {
		c.metrics.IncrementSkipped()
		c.logger.Warn("Skipping sensor message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil
	}

	select {
	case c.queue <- *sample:
		c.metrics.IncrementEnqueued()
	default:
		c.metrics.IncrementDropped()
		c.logger.Warn("Ingest queue full, dropping sensor sample",
			zap.Int64("user_id", sample.UserID),
		)
	}

	return nil
}

// normalize turns one raw sensor message into an ingestable sample, or
// reports why the message is unusable.
func (c *SensorConsumer) normalize(msg *models.SensorMessage) (*models.SensorSample, error) {
	// The device always publishes both keys; a payload without them is
	// some other producer on the topic.
	if len(msg.Temperature) == 0 || len(msg.Humidity) == 0 {
		return nil, fmt.Errorf("missing required fields (Temperature, Humidity)")
	}

	temperature, err := sensorValue(msg.Temperature)
	if err != nil {
		return nil, fmt.Errorf("invalid temperature value: %w", err)
	}
	humidity, err := sensorValue(msg.Humidity)
	if err != nil {
		return nil, fmt.Errorf("invalid humidity value: %w", err)
	}

	if temperature == nil && humidity == nil {
		return nil, fmt.Errorf("both sensors failed")
	}
	if temperature == nil {
		v := defaultTemperature
		temperature = &v
	}
	if humidity == nil {
		v := defaultHumidity
		humidity = &v
	}

	userID := c.config.Ingest.DefaultUserID
	if msg.UserID != nil {
		userID = *msg.UserID
	}

	return &models.SensorSample{
		UserID:      userID,
		Temperature: *temperature,
		Humidity:    *humidity,
		CryDetected: strings.EqualFold(msg.FinalResult, cryResult),
		Notes:       sensorNotes,
	}, nil
}

// sensorValue decodes one sensor field. Returns nil for the "Err" sentinel.
// Numbers may arrive bare or quoted.
func sensorValue(raw json.RawMessage) (*float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == sensorErrValue {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", s)
		}
		return &f, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unsupported value: %s", string(raw))
	}
	return &f, nil
}

// worker drains the queue until ctx is canceled.
func (c *SensorConsumer) worker(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case sample := <-c.queue:
			c.process(ctx, sample)
		}
	}
}

// process persists one sample and fans out the derived alert.
func (c *SensorConsumer) process(ctx context.Context, sample models.SensorSample) {
	result, err := c.health.IngestSensorSample(ctx, sample)
	if err != nil {
		c.metrics.IncrementFailed()
		c.logger.Error("Failed to ingest sensor sample",
			zap.Int64("user_id", sample.UserID),
			zap.Error(err),
		)
		return
	}

	c.metrics.IncrementSaved()
	c.logger.Debug("Sensor sample ingested",
		zap.Int64("user_id", sample.UserID),
		zap.Int64("reading_id", result.Reading.ID),
		zap.String("event", result.Alert.Event),
	)
}

// reportMetrics logs a counter snapshot every minute.
func (c *SensorConsumer) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.metrics.GetSnapshot()
			c.logger.Info("Sensor feed metrics",
				zap.Int64("messages_received", snapshot.MessagesReceived),
				zap.Int64("messages_skipped", snapshot.MessagesSkipped),
				zap.Int64("samples_enqueued", snapshot.SamplesEnqueued),
				zap.Int64("samples_dropped", snapshot.SamplesDropped),
				zap.Int64("samples_saved", snapshot.SamplesSaved),
				zap.Int64("samples_failed", snapshot.SamplesFailed),
				zap.Duration("uptime", time.Since(snapshot.StartTime)),
			)
		}
	}
}
