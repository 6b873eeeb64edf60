package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/clusterrisk/clusterrisk/internal/backup"
	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/events"
	"github.com/clusterrisk/clusterrisk/internal/modules/analysis"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	"github.com/clusterrisk/clusterrisk/internal/modules/history"
	"github.com/clusterrisk/clusterrisk/internal/modules/sectors"
)

type systemFixture struct {
	handlers    *SystemHandlers
	store       *funds.Store
	historyRepo *history.Repository
	sectorRepo  *sectors.Repository
	cacheDB     *sql.DB
}

func setupSystemHandlers(t *testing.T, runner *backup.Runner) *systemFixture {
	t.Helper()

	historyDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	historyDB.SetMaxOpenConns(1)
	t.Cleanup(func() { historyDB.Close() })

	cacheDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	cacheDB.SetMaxOpenConns(1)
	t.Cleanup(func() { cacheDB.Close() })

	historyRepo, err := history.NewRepository(historyDB, zerolog.Nop())
	require.NoError(t, err)
	sectorRepo, err := sectors.NewRepository(cacheDB, zerolog.Nop())
	require.NoError(t, err)
	store, err := funds.NewStore(t.TempDir(), 30, zerolog.Nop())
	require.NoError(t, err)

	bus := events.NewBus(zerolog.Nop())
	if runner == nil {
		runner = backup.NewRunner(backup.Config{}, t.TempDir(), nil, nil, bus, zerolog.Nop())
	}

	handlers := NewSystemHandlers(SystemConfig{
		Log:          zerolog.Nop(),
		DataDir:      "/srv/clusterrisk/data",
		Version:      "1.2.3",
		BaseCurrency: "EUR",
		HistoryDB:    historyDB,
		CacheDB:      cacheDB,
		FundStore:    store,
		History:      history.NewService(historyRepo, zerolog.Nop()),
		Sectors:      sectors.NewService(sectorRepo, nil, nil, bus, diagnostics.NewCollector(), 90, 1, zerolog.Nop()),
		Backup:       runner,
	})

	return &systemFixture{
		handlers:    handlers,
		store:       store,
		historyRepo: historyRepo,
		sectorRepo:  sectorRepo,
		cacheDB:     cacheDB,
	}
}

func decodeData(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response must carry a data object")
	return data
}

func TestHandleHealth(t *testing.T) {
	fix := setupSystemHandlers(t, nil)

	rec := httptest.NewRecorder()
	fix.handlers.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec.Body)

	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, "/srv/clusterrisk/data", data["data_dir"])

	goInfo := data["go"].(map[string]interface{})
	assert.Equal(t, runtime.Version(), goInfo["version"])

	dbs := data["databases"].(map[string]interface{})
	assert.Equal(t, "ok", dbs["history"])
	assert.Equal(t, "ok", dbs["cache"])
}

func TestHandleHealth_DegradedWhenDBBroken(t *testing.T) {
	fix := setupSystemHandlers(t, nil)
	require.NoError(t, fix.cacheDB.Close())

	rec := httptest.NewRecorder()
	fix.handlers.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	data := decodeData(t, rec.Body)

	assert.Equal(t, "degraded", data["status"])
	dbs := data["databases"].(map[string]interface{})
	assert.Equal(t, "ok", dbs["history"])
	assert.NotEqual(t, "ok", dbs["cache"])
}

func TestHandleInfo(t *testing.T) {
	fix := setupSystemHandlers(t, nil)

	require.NoError(t, fix.store.Put(&funds.Detail{
		Ticker: "EUNL.DE",
		Name:   "iShares Core MSCI World",
		ISIN:   "IE00B4L5Y983",
	}))
	_, err := fix.historyRepo.Record(&analysis.Result{
		RunID:     "run-1",
		Timestamp: time.Now(),
		Summary:   analysis.Summary{TotalValue: 1000},
	})
	require.NoError(t, err)
	require.NoError(t, fix.sectorRepo.Put(&sectors.Entry{
		Symbol: "AAPL", Sector: "Technology", Source: sectors.SourceYahoo, UpdatedAt: time.Now(),
	}))

	rec := httptest.NewRecorder()
	fix.handlers.HandleInfo(rec, httptest.NewRequest(http.MethodGet, "/api/system/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec.Body)

	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, "EUR", data["base_currency"])
	assert.Equal(t, float64(1), data["fund_details"])
	assert.Equal(t, float64(1), data["analyses"])
	assert.Equal(t, false, data["backup_configured"])

	cache := data["sector_cache"].(map[string]interface{})
	assert.Equal(t, float64(1), cache["total"])
}

func TestHandleBackup_NotConfigured(t *testing.T) {
	fix := setupSystemHandlers(t, nil)

	rec := httptest.NewRecorder()
	fix.handlers.HandleBackup(rec, httptest.NewRequest(http.MethodPost, "/api/system/backup", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

type recordingUploader struct {
	input *s3.PutObjectInput
}

func (u *recordingUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	u.input = input
	_, err := io.Copy(io.Discard, input.Body)
	return &manager.UploadOutput{}, err
}

func TestHandleBackup(t *testing.T) {
	uploader := &recordingUploader{}
	runner := backup.NewRunner(
		backup.Config{Bucket: "depot-backups", Prefix: "backups"},
		t.TempDir(), nil, uploader,
		events.NewBus(zerolog.Nop()), zerolog.Nop(),
	)
	fix := setupSystemHandlers(t, runner)

	rec := httptest.NewRecorder()
	fix.handlers.HandleBackup(rec, httptest.NewRequest(http.MethodPost, "/api/system/backup", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec.Body)

	key, ok := data["key"].(string)
	require.True(t, ok)
	assert.Contains(t, key, "backups/clusterrisk-")
	require.NotNil(t, uploader.input)
	assert.Equal(t, "depot-backups", *uploader.input.Bucket)
}
