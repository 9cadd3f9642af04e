package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afisha/internal/config"
	"afisha/internal/dataset"
	"afisha/internal/model"
	"afisha/internal/web"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = nil
	return cfg
}

func TestHealth_NoAuthRequired(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	srv := web.NewServer(cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestEvents_ServesSnapshot(t *testing.T) {
	srv := web.NewServer(testConfig())
	srv.SetEvents([]model.Event{
		{ID: "66.1", Date: "15.01", Title: "Jazz Night", Location: "ул. Мира, 5", Lat: 54.712, Lon: 20.507},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var events []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "66.1", events[0].ID)
}

func TestEvents_EmptyBeforeFirstRun(t *testing.T) {
	srv := web.NewServer(testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// A restart seeds the snapshot from the persisted dataset, so the API serves
// the last known events before (or despite) the first sync cycle.
func TestEvents_SeededFromPersistedDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, dataset.Save(path, []model.Event{
		{ID: "66.1", Date: "15.01", Title: "Jazz Night", Location: "ул. Мира, 5", Lat: 54.712, Lon: 20.507},
	}))

	srv := web.NewServer(testConfig())
	srv.SetEvents(dataset.Load(path))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var events []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "66.1", events[0].ID)
}

func TestCalendar_ServesICS(t *testing.T) {
	srv := web.NewServer(testConfig())
	srv.SetEvents([]model.Event{
		{ID: "66.1", Date: "15.01", Title: "Jazz Night", Location: "ул. Мира, 5"},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
}

func TestBasicAuth_RejectsBadCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	srv := web.NewServer(cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBasicAuth_AcceptsGoodCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	srv := web.NewServer(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointRegistered(t *testing.T) {
	srv := web.NewServer(testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
