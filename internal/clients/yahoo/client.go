// Package yahoo provides a minimal Yahoo Finance client used to look up
// the company profile (sector, industry, country) for a trade symbol.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// AssetProfile is the company profile block of a quoteSummary response.
type AssetProfile struct {
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
	Country  string `json:"country"`
	Website  string `json:"website"`
}

// quoteSummaryResponse represents the envelope of the quoteSummary API.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile *AssetProfile `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Client is a Yahoo Finance API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// SetBaseURL overrides the API endpoint, mainly for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// Profile fetches the asset profile for a symbol. Symbols without a
// profile (unknown tickers, funds) return (nil, nil) rather than an
// error so callers can fall through to the next source.
func (c *Client) Profile(ctx context.Context, symbol string) (*AssetProfile, error) {
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Yahoo rejects requests without a browser-like User-Agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug().Str("symbol", symbol).Msg("No Yahoo profile for symbol")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %s", parsed.QuoteSummary.Error.Description)
	}
	if len(parsed.QuoteSummary.Result) == 0 || parsed.QuoteSummary.Result[0].AssetProfile == nil {
		return nil, nil
	}

	return parsed.QuoteSummary.Result[0].AssetProfile, nil
}
