// Package openfigi provides a client for Bloomberg's OpenFIGI API.
// OpenFIGI is a free identifier-mapping service; it serves as the
// secondary source when resolving a trade symbol to a sector.
package openfigi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.openfigi.com/v3"

// MappingRequest represents a request to the OpenFIGI mapping API.
type MappingRequest struct {
	IDType   string `json:"idType"`
	IDValue  string `json:"idValue"`
	ExchCode string `json:"exchCode,omitempty"`
}

// MappingResult represents a single result from the OpenFIGI API.
type MappingResult struct {
	FIGI            string `json:"figi"`
	Ticker          string `json:"ticker"`
	ExchCode        string `json:"exchCode"`
	Name            string `json:"name"`
	MarketSector    string `json:"marketSector"` // e.g. "Equity"
	SecurityType    string `json:"securityType"` // e.g. "Common Stock"
	MarketSectorDes string `json:"marketSectorDes"`
}

// MappingResponse represents a response item from the OpenFIGI API.
type MappingResponse struct {
	Data    []MappingResult `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// Client is the OpenFIGI API client.
type Client struct {
	baseURL    string
	apiKey     string // optional, raises the rate limit
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new OpenFIGI client. The API key is optional.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "openfigi").Logger(),
	}
}

// SetBaseURL overrides the API endpoint, mainly for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// MapTicker resolves a ticker on one exchange. No match returns
// (nil, nil) so callers can fall through.
func (c *Client) MapTicker(ctx context.Context, ticker, exchCode string) (*MappingResult, error) {
	requests := []MappingRequest{{
		IDType:   "TICKER",
		IDValue:  ticker,
		ExchCode: exchCode,
	}}

	responses, err := c.doRequest(ctx, requests)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 || len(responses[0].Data) == 0 {
		return nil, nil
	}

	return &responses[0].Data[0], nil
}

// doRequest performs the HTTP request to the OpenFIGI API.
func (c *Client) doRequest(ctx context.Context, requests []MappingRequest) ([]MappingResponse, error) {
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mapping", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	c.log.Debug().Int("count", len(requests)).Msg("Making OpenFIGI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OpenFIGI API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var responses []MappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&responses); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return responses, nil
}
