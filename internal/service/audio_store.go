package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"babycare-backend/internal/config"

	"go.uber.org/zap"
)

// ErrUnsupportedAudioFormat is returned for uploads outside the extension whitelist.
var ErrUnsupportedAudioFormat = errors.New("unsupported audio format")

// ErrAudioTooLarge is returned when an upload exceeds the configured size cap.
var ErrAudioTooLarge = errors.New("audio file too large")

var allowedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
}

// AllowedAudioExtensions returns the upload whitelist in stable order.
func AllowedAudioExtensions() []string {
	exts := make([]string, 0, len(allowedAudioExtensions))
	for ext := range allowedAudioExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// AudioStore writes uploaded clips to local disk and hands back the public
// path they are served from.
type AudioStore struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewAudioStore creates the store and ensures its upload directory exists.
func NewAudioStore(cfg *config.UploadConfig, logger *zap.Logger) (*AudioStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &AudioStore{
		dir:      cfg.Dir,
		maxBytes: cfg.MaxBytes,
		logger:   logger,
	}, nil
}

// Save validates and persists one clip, returning its public URL path.
// Stored names carry the owner and upload time so clips sort naturally on disk.
func (s *AudioStore) Save(userID int64, originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedAudioExtensions[ext] {
		return "", ErrUnsupportedAudioFormat
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrAudioTooLarge
	}

	filename := fmt.Sprintf("audio_%d_%s%s", userID, time.Now().Format("20060102_150405"), ext)
	fullPath := filepath.Join(s.dir, filename)

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	s.logger.Debug("Stored audio clip",
		zap.Int64("user_id", userID),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)

	return "/uploads/" + filename, nil
}

// FilePath resolves a stored clip name to its on-disk path. Names containing
// path separators are rejected so the handler cannot be walked out of the
// upload directory.
func (s *AudioStore) FilePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name")
	}
	return filepath.Join(s.dir, name), nil
}

// Dir returns the upload directory.
func (s *AudioStore) Dir() string {
	return s.dir
}
