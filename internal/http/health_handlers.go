package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"babycare-backend/internal/models"
	"babycare-backend/internal/repository"
	"babycare-backend/internal/service"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const defaultTimeSeriesWindow = 7 * 24 * time.Hour

// timeSeriesIntervals whitelists the bucket widths the store understands.
var timeSeriesIntervals = map[string]bool{
	"15 minutes": true,
	"1 hour":     true,
	"6 hours":    true,
	"1 day":      true,
	"1 week":     true,
}

// HealthHandler serves the reading endpoints.
type HealthHandler struct {
	health    service.HealthService
	validate  *validator.Validate
	maxUpload int64
	logger    *zap.Logger
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(health service.HealthService, maxUpload int64, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		health:    health,
		validate:  validator.New(),
		maxUpload: maxUpload,
		logger:    logger,
	}
}

type uploadForm struct {
	Temperature float64 `validate:"gte=-10,lte=50"`
	Humidity    float64 `validate:"gte=0,lte=100"`
	Notes       string  `validate:"omitempty,max=500"`
}

// Upload handles POST /api/health/upload (multipart form).
func (h *HealthHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid multipart form"))
		return
	}

	tempStr := r.FormValue("temperature")
	if tempStr == "" {
		writeJSON(w, http.StatusBadRequest, Fail("temperature is required"))
		return
	}
	temperature, err := parseFloat(tempStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("temperature must be a number"))
		return
	}

	humidityStr := r.FormValue("humidity")
	if humidityStr == "" {
		writeJSON(w, http.StatusBadRequest, Fail("humidity is required"))
		return
	}
	humidity, err := parseFloat(humidityStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("humidity must be a number"))
		return
	}

	form := uploadForm{
		Temperature: temperature,
		Humidity:    humidity,
		Notes:       r.FormValue("notes"),
	}
	if err := h.validate.Struct(form); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(uploadValidationMessage(err)))
		return
	}

	input := service.UploadInput{
		Temperature: form.Temperature,
		Humidity:    form.Humidity,
	}
	if form.Notes != "" {
		notes := form.Notes
		input.Notes = &notes
	}

	file, header, err := r.FormFile("audio")
	switch {
	case err == nil:
		defer file.Close()
		audio, readErr := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
		if readErr != nil {
			writeJSON(w, http.StatusBadRequest, Fail("failed to read audio file"))
			return
		}
		input.AudioFilename = header.Filename
		input.Audio = audio
	case errors.Is(err, http.ErrMissingFile):
		// Audio is optional.
	default:
		writeJSON(w, http.StatusBadRequest, Fail("invalid audio upload"))
		return
	}

	result, err := h.health.IngestUpload(r.Context(), claims.UserID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedAudioFormat):
			msg := fmt.Sprintf("Invalid audio format. Allowed: %s", strings.Join(service.AllowedAudioExtensions(), ", "))
			writeJSON(w, http.StatusBadRequest, Fail(msg))
		case errors.Is(err, service.ErrAudioTooLarge):
			writeJSON(w, http.StatusBadRequest, Fail("Audio file too large"))
		default:
			h.logger.Error("Failed to ingest reading", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("Error processing health data"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, Ok(result.Reading))
}

// History handles GET /api/health/history.
func (h *HealthHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	q := r.URL.Query()
	filter := models.ReadingFilter{
		Limit:  parseInt(q.Get("limit"), 100),
		Offset: parseInt(q.Get("offset"), 0),
	}

	if v := q.Get("cry_detected"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("cry_detected must be true or false"))
			return
		}
		filter.CryDetected = &b
	}
	if v := q.Get("sick_detected"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("sick_detected must be true or false"))
			return
		}
		filter.SickDetected = &b
	}
	if v := q.Get("start_date"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("start_date must be RFC3339"))
			return
		}
		filter.StartDate = &ts
	}
	if v := q.Get("end_date"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("end_date must be RFC3339"))
			return
		}
		filter.EndDate = &ts
	}

	readings, err := h.health.History(r.Context(), claims.UserID, filter)
	if err != nil {
		h.logger.Error("Failed to load history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Error retrieving health history"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(readings))
}

// Stats handles GET /api/health/stats.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	stats, err := h.health.Stats(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("Failed to calculate stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Error calculating statistics"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(stats))
}

// TimeSeries handles GET /api/health/timeseries.
func (h *HealthHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	q := r.URL.Query()

	interval := q.Get("interval")
	if interval == "" {
		interval = "1 hour"
	}
	if !timeSeriesIntervals[interval] {
		writeJSON(w, http.StatusBadRequest, Fail("invalid interval"))
		return
	}

	end := time.Now()
	if v := q.Get("end_date"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("end_date must be RFC3339"))
			return
		}
		end = ts
	}

	start := end.Add(-defaultTimeSeriesWindow)
	if v := q.Get("start_date"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("start_date must be RFC3339"))
			return
		}
		start = ts
	}

	buckets, err := h.health.TimeSeries(r.Context(), claims.UserID, interval, start, end)
	if err != nil {
		h.logger.Error("Failed to load time series", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Error retrieving time-series data"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(buckets))
}

// Latest handles GET /api/health/latest.
func (h *HealthHandler) Latest(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	reading, err := h.health.Latest(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("Health record not found"))
			return
		}
		h.logger.Error("Failed to load latest reading", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Error retrieving latest reading"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(reading))
}

// GetByID handles GET /api/health/{id}.
func (h *HealthHandler) GetByID(w http.ResponseWriter, r *http.Request, idStr string) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	id, ok := parseInt64(idStr)
	if !ok {
		writeJSON(w, http.StatusNotFound, Fail("Health record not found"))
		return
	}

	reading, err := h.health.GetReading(r.Context(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("Health record not found"))
			return
		}
		h.logger.Error("Failed to load reading", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Error retrieving health record"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(reading))
}

// Export handles GET /api/health/export and streams an XLSX workbook.
func (h *HealthHandler) Export(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	filter := models.ReadingFilter{
		Limit: parseInt(r.URL.Query().Get("limit"), 1000),
	}

	readings, err := h.health.History(r.Context(), claims.UserID, filter)
	if err != nil {
		h.logger.Error("Failed to load readings for export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Error exporting health data"))
		return
	}

	data, err := GenerateReadingsExport(readings)
	if err != nil {
		h.logger.Error("Failed to build export workbook", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("Error exporting health data"))
		return
	}

	filename := fmt.Sprintf("health_data_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func uploadValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	switch verrs[0].Field() {
	case "Temperature":
		return "Temperature must be between -10°C and 50°C"
	case "Humidity":
		return "Humidity must be between 0% and 100%"
	case "Notes":
		return "Notes must be 500 characters or less"
	default:
		return "invalid request"
	}
}
