package funds

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), 30, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	return store
}

func TestStorePutGet(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Put(sampleDetail()))

	detail, err := store.Get("EUNL.DE")
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, "iShares Core MSCI World UCITS ETF", detail.Name)
	assert.Equal(t, "EUNL.DE", detail.Ticker)
	require.Len(t, detail.Holdings, 3)
	assert.InDelta(t, 0.0498, detail.Holdings[0].Weight, 0.0001)
}

func TestStoreGet_Missing(t *testing.T) {
	store := setupTestStore(t)

	detail, err := store.Get("MISSING.DE")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestStorePut_UpsertsIndex(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 30, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)

	require.NoError(t, store.Put(sampleDetail()))

	ticker, ok := store.Lookup("IE00B4L5Y983")
	require.True(t, ok)
	assert.Equal(t, "EUNL.DE", ticker)

	// The index survives a restart.
	reopened, err := NewStore(dir, 30, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	ticker, ok = reopened.Lookup("ie00b4l5y983")
	require.True(t, ok, "lookup should be case-insensitive")
	assert.Equal(t, "EUNL.DE", ticker)
}

func TestStoreLookup_SeedFallback(t *testing.T) {
	store := setupTestStore(t)

	ticker, ok := store.Lookup("IE00B3RBWM25")
	require.True(t, ok, "seed list should answer before any fund is stored")
	assert.Equal(t, "VWRL.L", ticker)

	_, ok = store.Lookup("XX0000000000")
	assert.False(t, ok)
}

func TestStoreList(t *testing.T) {
	store := setupTestStore(t)

	fresh := sampleDetail()
	fresh.LastUpdated = time.Now().Format("2006-01-02")
	require.NoError(t, store.Put(fresh))

	stale := sampleDetail()
	stale.Ticker = "VWRL.L"
	stale.ISIN = "IE00B3RBWM25"
	stale.LastUpdated = "2020-01-01"
	require.NoError(t, store.Put(stale))

	summaries, err := store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2, "identifier index file must not be listed as a fund")

	assert.Equal(t, "EUNL.DE", summaries[0].Ticker)
	require.NotNil(t, summaries[0].DaysOld)
	assert.False(t, summaries[0].Stale)

	assert.Equal(t, "VWRL.L", summaries[1].Ticker)
	require.NotNil(t, summaries[1].DaysOld)
	assert.True(t, summaries[1].Stale)
	assert.Equal(t, "auto", summaries[1].DataSource)
}

func TestStoreList_SkipsUnparsableFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 30, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)

	require.NoError(t, store.Put(sampleDetail()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BROKEN.csv"), []byte("no,headers,here\n"), 0644))

	summaries, err := store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "EUNL.DE", summaries[0].Ticker)
}

func TestStoreWriteTemplate_RefusesOverwrite(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Put(sampleDetail()))

	err := store.WriteTemplate(sampleDetail())
	assert.Error(t, err, "template must never clobber an existing file")
}

func TestStoreDelete(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Put(sampleDetail()))
	require.NoError(t, store.Delete("EUNL.DE"))

	detail, err := store.Get("EUNL.DE")
	require.NoError(t, err)
	assert.Nil(t, detail)

	assert.Error(t, store.Delete("EUNL.DE"))
}
