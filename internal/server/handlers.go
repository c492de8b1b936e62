package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/glocktrack/glocktrack/internal/apperrors"
	"github.com/glocktrack/glocktrack/internal/database"
	"github.com/glocktrack/glocktrack/internal/logger"
	"github.com/glocktrack/glocktrack/internal/services"
)

// maxImageSize bounds uploaded meter photos and profile pictures
const maxImageSize = 10 << 20

type createReadingRequest struct {
	Value     float64 `json:"value"`
	Type      string  `json:"type"`
	Timestamp string  `json:"timestamp,omitempty"`
	Source    string  `json:"source,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var req createReadingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var timestamp time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "timestamp must be RFC 3339")
			return
		}
		timestamp = parsed
	}

	source := database.ReadingSource(req.Source)
	if req.Source == "" {
		source = database.SourceManual
	}

	id, err := s.readings.AddReading(r.Context(), services.ReadingInput{
		Value:     req.Value,
		Type:      database.ReadingType(req.Type),
		Timestamp: timestamp,
		Source:    source,
		Notes:     req.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint{"id": id})
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	history, err := s.trends.History(r.Context(), start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading id")
		return
	}

	if err := s.readings.DeleteReading(r.Context(), uint(id)); err != nil {
		if errors.Is(err, apperrors.ErrReadingNotFound) {
			writeError(w, http.StatusNotFound, "reading not found")
			return
		}
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.trends.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	image, mimeType, err := readImageField(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}

	result := s.readings.ScanImage(r.Context(), image, mimeType)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.Get(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "no profile saved yet")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form")
		return
	}

	input := services.ProfileInput{
		Name:                  r.FormValue("name"),
		DiabetesType:          database.DiabetesType(r.FormValue("diabetesType")),
		Unit:                  database.GlucoseUnit(r.FormValue("unit")),
		TargetFastingMin:      formInt(r, "targetFastingMin"),
		TargetFastingMax:      formInt(r, "targetFastingMax"),
		TargetPostPrandialMin: formInt(r, "targetPostPrandialMin"),
		TargetPostPrandialMax: formInt(r, "targetPostPrandialMax"),
	}
	if idField := r.FormValue("id"); idField != "" {
		id, err := strconv.ParseUint(idField, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid profile id")
			return
		}
		input.ID = uint(id)
	}

	if photo, mimeType, err := readImageField(r, "photo"); err == nil {
		input.Photo = services.EncodePhoto(photo, mimeType)
	} else if existing := r.FormValue("photo"); existing != "" {
		// already-encoded data URL from a form that kept the old picture
		input.Photo = existing
	}

	id, err := s.profiles.Save(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint{"id": id})
}

func readImageField(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

func formInt(r *http.Request, field string) int {
	value, err := strconv.Atoi(r.FormValue(field))
	if err != nil {
		return 0
	}
	return value
}

func respondServiceError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
		writeError(w, http.StatusBadRequest, appErr.Message)
		return
	}
	logger.Error("Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "operation failed, please retry")
}
