package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v10/finance/quoteSummary/AAPL", r.URL.Path)
		assert.Equal(t, "assetProfile", r.URL.Query().Get("modules"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quoteSummary":{"result":[{"assetProfile":{"sector":"Technology","industry":"Consumer Electronics","country":"United States"}}],"error":null}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	profile, err := client.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "Technology", profile.Sector)
	assert.Equal(t, "Consumer Electronics", profile.Industry)
	assert.Equal(t, "United States", profile.Country)
}

func TestProfile_NoProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quoteSummary":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	profile, err := client.Profile(context.Background(), "EUNL.DE")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestProfile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found"}}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	profile, err := client.Profile(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestProfile_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.Profile(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Crumb")
}

func TestProfile_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.Profile(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestProfile_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.Profile(context.Background(), "AAPL")
	assert.Error(t, err)
}
