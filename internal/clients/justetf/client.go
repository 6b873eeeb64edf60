// Package justetf scrapes fund composition pages from justETF: the
// profile page for name, metadata and top holdings, and the Wicket
// AJAX endpoints that serve the full country and sector lists the
// profile page truncates.
package justetf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://www.justetf.com"

	// The site serves a consent interstitial to clients it does not
	// recognise as browsers.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// AllocationKind selects which incremental-load table to fetch.
type AllocationKind string

const (
	AllocationCountries AllocationKind = "countries"
	AllocationSectors   AllocationKind = "sectors"
)

var allocationMarkers = map[AllocationKind]string{
	AllocationCountries: "0-1.0-holdingsSection-countries-loadMoreCountries",
	AllocationSectors:   "0-1.0-holdingsSection-sectors-loadMoreSectors",
}

// Row is one name/weight line of an allocation table. Weights are
// percent as printed on the page.
type Row struct {
	Name   string
	Weight float64
}

// HoldingRow is one top-holdings line. The ISIN is present when the
// holding links to a stock profile.
type HoldingRow struct {
	Name   string
	Weight float64
	ISIN   string
}

// ProfilePage is everything extracted from one fund profile page.
type ProfilePage struct {
	Name          string
	ISIN          string
	TER           string
	Currency      string
	Replication   string
	FundSize      string
	Distribution  string
	Domicile      string
	IndexName     string
	Holdings      []HoldingRow
	Countries     []Row
	Sectors       []Row
	ReferenceDate string
}

// Client fetches fund pages from justETF. The cookie jar matters: the
// profile request establishes the Wicket session the AJAX endpoints
// are keyed to.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a justETF client with a fresh cookie jar.
func NewClient(log zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
		log: log.With().Str("client", "justetf").Logger(),
	}
}

// SetBaseURL overrides the justETF endpoint, mainly for mirrors and tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

func (c *Client) profileURL(isin string) string {
	return fmt.Sprintf("%s/en/etf-profile.html?isin=%s", c.baseURL, url.QueryEscape(isin))
}

// FetchProfile loads and parses the profile page for an ISIN. A page
// without a fund name means justETF does not know the ISIN; that
// returns (nil, nil) so callers can distinguish it from a transport
// failure.
func (c *Client) FetchProfile(ctx context.Context, isin string) (*ProfilePage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL(isin), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,de;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fund profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("justETF returned status %d for %s", resp.StatusCode, isin)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile page: %w", err)
	}

	page := parseProfile(doc)
	if page.Name == "" {
		c.log.Debug().Str("isin", isin).Msg("Fund not found on justETF")
		return nil, nil
	}
	page.ISIN = isin

	return page, nil
}

// FetchAllocation loads the full country or sector table through the
// Wicket AJAX endpoint. An empty result is not an error; callers keep
// whatever the profile page showed.
func (c *Client) FetchAllocation(ctx context.Context, isin string, kind AllocationKind) ([]Row, error) {
	marker, ok := allocationMarkers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown allocation kind %q", kind)
	}

	reqURL := fmt.Sprintf("%s/en/etf-profile.html?%s&isin=%s&_wicket=1", c.baseURL, marker, url.QueryEscape(isin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml, text/xml, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,de;q=0.8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Wicket-Ajax", "true")
	req.Header.Set("Wicket-Ajax-BaseURL", fmt.Sprintf("en/etf-profile.html?isin=%s", url.QueryEscape(isin)))
	req.Header.Set("Referer", c.profileURL(isin))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s table: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("justETF returned status %d for %s table of %s", resp.StatusCode, kind, isin)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s table: %w", kind, err)
	}

	rows := parseWicketRows(body, kind)
	c.log.Debug().Str("isin", isin).Str("kind", string(kind)).Int("rows", len(rows)).Msg("Fetched allocation table")
	return rows, nil
}
