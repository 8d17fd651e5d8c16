package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundwatch/internal/httpapi"
	"groundwatch/internal/models"
	"groundwatch/internal/scheduler"
)

type fakeSource struct {
	records []models.GroundwaterRecord
	err     error
}

func (f *fakeSource) ListRecords(_ context.Context) ([]models.GroundwaterRecord, error) {
	return f.records, f.err
}

type fakeTrigger struct {
	report models.CycleReport
	err    error
	calls  int
}

func (f *fakeTrigger) TriggerNow(_ context.Context) (models.CycleReport, error) {
	f.calls++
	return f.report, f.err
}

func newServer(source *fakeSource, trigger *fakeTrigger) *httpapi.Server {
	return httpapi.New(":0", "", source, trigger, slog.Default())
}

func doRequest(t *testing.T, srv *httpapi.Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestGetData(t *testing.T) {
	value := 2.85
	source := &fakeSource{records: []models.GroundwaterRecord{{
		State:     "Maharashtra",
		District:  "Pune",
		Latitude:  19.1,
		Longitude: 74.3,
		WellDepth: 3.2,
		DataValue: &value,
	}}}

	rec := doRequest(t, newServer(source, &fakeTrigger{}), http.MethodGet, "/api/v1/data")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.GroundwaterRecord `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Meta.Count)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Pune", body.Data[0].District)
}

func TestGetData_StoreError(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}

	rec := doRequest(t, newServer(source, &fakeTrigger{}), http.MethodGet, "/api/v1/data")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetStats_EmptyTable(t *testing.T) {
	rec := doRequest(t, newServer(&fakeSource{}, &fakeTrigger{}), http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["total"])
	assert.EqualValues(t, 0, body["avg_depth"])
}

func TestGetStats_Buckets(t *testing.T) {
	source := &fakeSource{records: []models.GroundwaterRecord{
		{WellDepth: 3.2},
		{WellDepth: 12},
		{WellDepth: 45},
	}}

	rec := doRequest(t, newServer(source, &fakeTrigger{}), http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["good"])
	assert.EqualValues(t, 1, body["moderate"])
	assert.EqualValues(t, 1, body["critical"])
}

func TestPostUpdate_ReturnsReport(t *testing.T) {
	trigger := &fakeTrigger{report: models.CycleReport{
		DistrictsProcessed: 36,
		RecordsFetched:     420,
		Write:              models.WriteReport{RecordsRequested: 400, RecordsWritten: 400},
	}}

	rec := doRequest(t, newServer(&fakeSource{}, trigger), http.MethodPost, "/api/v1/update")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, trigger.calls)

	var body struct {
		Success bool               `json:"success"`
		Report  models.CycleReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 400, body.Report.Write.RecordsWritten)
}

func TestPostUpdate_ConflictWhileRunning(t *testing.T) {
	trigger := &fakeTrigger{err: scheduler.ErrCycleRunning}

	rec := doRequest(t, newServer(&fakeSource{}, trigger), http.MethodPost, "/api/v1/update")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	srv := httpapi.New(":0", "sekrit", &fakeSource{}, &fakeTrigger{}, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/data", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/data", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health endpoint stays open.
	rec = doRequest(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHeatmapPage(t *testing.T) {
	rec := doRequest(t, newServer(&fakeSource{}, &fakeTrigger{}), http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "leaflet")
}
