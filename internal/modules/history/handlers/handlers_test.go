package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterrisk/clusterrisk/internal/modules/analysis"
	"github.com/clusterrisk/clusterrisk/internal/modules/history"
)

func setupTestHandler(t *testing.T) (*Handler, *history.Repository) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo, err := history.NewRepository(db, logger)
	require.NoError(t, err)

	service := history.NewService(repo, logger)
	return NewHandler(service, logger), repo
}

func seedRuns(t *testing.T, repo *history.Repository, count int) []int64 {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		id, err := repo.Record(&analysis.Result{
			RunID:     fmt.Sprintf("run-%d", i+1),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Summary: analysis.Summary{
				TotalValue:     float64(100 * (i + 1)),
				TotalPositions: 3,
			},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object")
	return data
}

func TestHandleListHistory(t *testing.T) {
	handler, repo := setupTestHandler(t)
	ids := seedRuns(t, repo, 3)

	req := httptest.NewRequest("GET", "/api/history", nil)
	w := httptest.NewRecorder()

	handler.HandleListHistory(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(3), data["count"])

	analyses := data["analyses"].([]interface{})
	require.Len(t, analyses, 3)
	first := analyses[0].(map[string]interface{})
	assert.Equal(t, float64(ids[2]), first["id"], "newest run comes first")
}

func TestHandleListHistory_Limit(t *testing.T) {
	handler, repo := setupTestHandler(t)
	seedRuns(t, repo, 3)

	req := httptest.NewRequest("GET", "/api/history?limit=2", nil)
	w := httptest.NewRecorder()

	handler.HandleListHistory(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeData(t, w)["count"])

	bad := httptest.NewRequest("GET", "/api/history?limit=abc", nil)
	w = httptest.NewRecorder()
	handler.HandleListHistory(w, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetAnalysis(t *testing.T) {
	handler, repo := setupTestHandler(t)
	ids := seedRuns(t, repo, 1)

	req := httptest.NewRequest("GET", "/api/history/1", nil)
	w := httptest.NewRecorder()

	handler.HandleGetAnalysis(w, req, fmt.Sprint(ids[0]))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(ids[0]), data["id"])

	result := data["result"].(map[string]interface{})
	assert.Equal(t, "run-1", result["run_id"])
}

func TestHandleGetAnalysis_NotFound(t *testing.T) {
	handler, _ := setupTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleGetAnalysis(w, httptest.NewRequest("GET", "/api/history/99", nil), "99")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.HandleGetAnalysis(w, httptest.NewRequest("GET", "/api/history/abc", nil), "abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDeleteAnalysis(t *testing.T) {
	handler, repo := setupTestHandler(t)
	ids := seedRuns(t, repo, 1)

	req := httptest.NewRequest("DELETE", "/api/history/1", nil)
	w := httptest.NewRecorder()

	handler.HandleDeleteAnalysis(w, req, fmt.Sprint(ids[0]))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.HandleDeleteAnalysis(w, req, fmt.Sprint(ids[0]))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleClearHistory(t *testing.T) {
	handler, repo := setupTestHandler(t)
	seedRuns(t, repo, 2)

	req := httptest.NewRequest("DELETE", "/api/history", nil)
	w := httptest.NewRecorder()

	handler.HandleClearHistory(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeData(t, w)["deleted"])
}

func TestHandleTimeline(t *testing.T) {
	handler, repo := setupTestHandler(t)
	seedRuns(t, repo, 3)

	req := httptest.NewRequest("GET", "/api/history/timeline", nil)
	w := httptest.NewRecorder()

	handler.HandleTimeline(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)

	points := data["points"].([]interface{})
	require.Len(t, points, 3)
	first := points[0].(map[string]interface{})
	assert.Equal(t, float64(100), first["total_value"], "timeline runs oldest to newest")
}
