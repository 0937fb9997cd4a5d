package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"babycare-backend/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// cryLabel is the classifier label that marks an infant cry.
const cryLabel = "INFANTCRY"

// Classification is one audio classification result.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// IsCry reports whether the classification labelled the clip as an infant cry.
// Label casing differs between classifier builds, so the match is case-insensitive.
func (c *Classification) IsCry() bool {
	return strings.EqualFold(c.Label, cryLabel)
}

// Classifier labels audio clips. Implementations call the external sound
// classification service.
type Classifier interface {
	Classify(ctx context.Context, filename string, audio []byte) (*Classification, error)
}

type classifierClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClassifierClient creates a classifier backed by the HTTP classification service.
func NewClassifierClient(cfg *config.ClassifierConfig, logger *zap.Logger) Classifier {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	return &classifierClient{
		httpClient: client,
		logger:     logger,
	}
}

// Classify posts one audio clip and returns its label.
func (c *classifierClient) Classify(ctx context.Context, filename string, audio []byte) (*Classification, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio is required")
	}

	var result Classification
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(audio)).
		SetResult(&result).
		Post("/classify")

	if err != nil {
		return nil, fmt.Errorf("failed to call classifier: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode())
	}

	c.logger.Debug("Classified audio clip",
		zap.String("filename", filename),
		zap.String("label", result.Label),
		zap.Float64("confidence", result.Confidence),
	)

	return &result, nil
}
