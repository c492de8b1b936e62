package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glocktrack/glocktrack/internal/config"
	"github.com/glocktrack/glocktrack/internal/database"
	"github.com/glocktrack/glocktrack/internal/services"
	"github.com/glocktrack/glocktrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	value float64
	found bool
}

func (s *stubExtractor) ExtractValue(ctx context.Context, image []byte, mimeType string) (float64, bool) {
	return s.value, s.found
}

func newTestServer(t *testing.T, extractor services.ValueExtractor) (*Server, *store.Store) {
	t.Helper()
	db, err := database.NewSQLiteDB(config.DBConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)

	st := store.New(db, store.NewMemoryNotifier())
	readings := services.NewReadingService(st, extractor)
	profiles := services.NewProfileService(st)
	trends := services.NewTrendService(st)
	return NewServer(st, readings, profiles, trends), st
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListReadings(t *testing.T) {
	srv, _ := newTestServer(t, &stubExtractor{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/readings", map[string]any{
		"value": 95.0,
		"type":  "fasting",
		"notes": "before breakfast",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]uint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created["id"])

	rec = doJSON(t, srv.Router(), http.MethodGet, "/api/readings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []services.AnnotatedReading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, 95.0, history[0].Value)
	assert.Equal(t, database.SourceManual, history[0].Source)
}

func TestCreateReadingRejectsInvalidValue(t *testing.T) {
	srv, _ := newTestServer(t, &stubExtractor{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/readings", map[string]any{
		"value": -5.0,
		"type":  "fasting",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv.Router(), http.MethodPost, "/api/readings", map[string]any{
		"value": 95.0,
		"type":  "bedtime",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReadingWithTimestamp(t *testing.T) {
	srv, st := newTestServer(t, &stubExtractor{})

	ts := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/readings", map[string]any{
		"value":     118.0,
		"type":      "post-prandial",
		"source":    "scan",
		"timestamp": ts.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	logs, err := st.ListReadings(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Timestamp.Equal(ts))
	assert.Equal(t, database.SourceScan, logs[0].Source)
}

func TestDeleteReading(t *testing.T) {
	srv, st := newTestServer(t, &stubExtractor{})

	id, err := st.InsertReading(context.Background(), 95, database.ReadingFasting, time.Now(), database.SourceManual, "")
	require.NoError(t, err)

	rec := doJSON(t, srv.Router(), http.MethodDelete, fmt.Sprintf("/api/readings/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv.Router(), http.MethodDelete, fmt.Sprintf("/api/readings/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard(t *testing.T) {
	srv, st := newTestServer(t, &stubExtractor{})
	ctx := context.Background()

	_, err := st.UpsertProfile(ctx, &database.UserProfile{
		Name:             "Asha",
		DiabetesType:     database.DiabetesType2,
		TargetFastingMin: 70,
		TargetFastingMax: 100,
		Unit:             database.UnitMgDL,
	})
	require.NoError(t, err)
	_, err = st.InsertReading(ctx, 95, database.ReadingFasting, time.Now(), database.SourceManual, "")
	require.NoError(t, err)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot services.DashboardSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	require.Contains(t, snapshot.Latest, database.ReadingFasting)
	assert.Equal(t, services.StatusNormal, snapshot.Latest[database.ReadingFasting].Status)
	assert.Len(t, snapshot.Series, 1)
}

func TestScan(t *testing.T) {
	srv, _ := newTestServer(t, &stubExtractor{value: 118, found: true})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "meter.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result services.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Found)
	assert.Equal(t, 118.0, result.Value)
}

func TestScanNoMatch(t *testing.T) {
	srv, st := newTestServer(t, &stubExtractor{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "meter.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// no numeric candidate is a normal outcome, not an error
	require.Equal(t, http.StatusOK, rec.Code)
	var result services.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Found)

	logs, err := st.ListReadings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, logs, "a scan must not persist anything by itself")
}

func TestProfileLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &stubExtractor{})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"name":                  "Asha",
		"diabetesType":          "Type 2",
		"unit":                  "mg/dL",
		"targetFastingMin":      "70",
		"targetFastingMax":      "100",
		"targetPostPrandialMin": "120",
		"targetPostPrandialMax": "140",
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("portrait"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/profile", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv.Router(), http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile database.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Asha", profile.Name)
	assert.Equal(t, 70, profile.TargetFastingMin)
	assert.True(t, strings.HasPrefix(profile.Photo, "data:"))
}

func TestProfileValidationError(t *testing.T) {
	srv, _ := newTestServer(t, &stubExtractor{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", ""))
	require.NoError(t, writer.WriteField("diabetesType", "Type 2"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/profile", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
