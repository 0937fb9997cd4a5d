package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"babycare-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClassifier(t *testing.T, handler http.HandlerFunc) Classifier {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClassifierClient(&config.ClassifierConfig{
		BaseURL:        srv.URL,
		TimeoutSeconds: 2,
	}, zap.NewNop())
}

func TestClassify_ParsesResult(t *testing.T) {
	var gotPath, gotFilename string
	var gotAudio []byte

	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		file, header, err := r.FormFile("file")
		if err == nil {
			gotFilename = header.Filename
			gotAudio, _ = io.ReadAll(file)
			file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"label":"InfantCry","confidence":0.93}`))
	})

	result, err := classifier.Classify(context.Background(), "cry.wav", []byte("RIFF-audio"))
	require.NoError(t, err)

	assert.Equal(t, "/classify", gotPath)
	assert.Equal(t, "cry.wav", gotFilename)
	assert.Equal(t, []byte("RIFF-audio"), gotAudio)
	assert.Equal(t, "InfantCry", result.Label)
	assert.InDelta(t, 0.93, result.Confidence, 0.0001)
	assert.True(t, result.IsCry())
}

func TestClassify_ServerError(t *testing.T) {
	classifier := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	result, err := classifier.Classify(context.Background(), "cry.wav", []byte("RIFF-audio"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "classifier returned status 500")
}

func TestClassify_EmptyAudio(t *testing.T) {
	classifier := NewClassifierClient(&config.ClassifierConfig{BaseURL: "http://localhost:1"}, zap.NewNop())

	result, err := classifier.Classify(context.Background(), "cry.wav", nil)
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestClassification_IsCry(t *testing.T) {
	assert.True(t, (&Classification{Label: "INFANTCRY"}).IsCry())
	assert.True(t, (&Classification{Label: "infantcry"}).IsCry())
	assert.True(t, (&Classification{Label: "InfantCry"}).IsCry())
	assert.False(t, (&Classification{Label: "Snoring"}).IsCry())
	assert.False(t, (&Classification{}).IsCry())
}
