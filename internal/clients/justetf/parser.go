package justetf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// "24.5%", "24,5 %", "24.5" all parse; the percent sign is optional.
	percentPattern = regexp.MustCompile(`([\d.,]+)\s*%?`)
	// TER cells must carry the sign ("0.20% p.a."); \p{Zs} admits the
	// NBSP the site likes to put before it.
	terPattern          = regexp.MustCompile(`([\d.,]+)[\s\p{Zs}]*%`)
	stockProfilePattern = regexp.MustCompile(`/stock-profiles/([A-Z0-9]{12})`)
)

func parseProfile(doc *goquery.Document) *ProfilePage {
	page := &ProfilePage{
		Name: cleanText(doc.Find("h1").First()),
	}

	parseMetadataTables(doc, page)
	page.Holdings = parseHoldingRows(doc)
	page.Countries = parseAllocationRows(doc, AllocationCountries)
	page.Sectors = parseAllocationRows(doc, AllocationSectors)
	page.ReferenceDate = cleanText(doc.Find(`[data-testid="tl_etf-holdings_reference-date"]`).First())

	return page
}

// parseMetadataTables walks every key/value table row on the page and
// keeps the fields we recognise, English or German labels alike.
func parseMetadataTables(doc *goquery.Document, page *ProfilePage) {
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		key := strings.ToLower(cleanText(cells.Eq(0)))
		value := cleanText(cells.Eq(1))

		switch {
		case strings.Contains(key, "ter") || strings.Contains(key, "total expense") || strings.Contains(key, "gesamtkosten"):
			if m := terPattern.FindStringSubmatch(value); m != nil {
				page.TER = strings.ReplaceAll(m[1], ",", ".")
			}
		case strings.Contains(key, "fund currency") || strings.Contains(key, "fondswährung"):
			page.Currency = value
		case strings.Contains(key, "replication") || strings.Contains(key, "replikation"):
			page.Replication = value
		case strings.Contains(key, "fund size") || strings.Contains(key, "fondsgröße"):
			page.FundSize = value
		case strings.Contains(key, "distribution") || strings.Contains(key, "ausschüttung") || strings.Contains(key, "ertragsverwendung"):
			page.Distribution = value
		case strings.Contains(key, "fund domicile") || strings.Contains(key, "fondsdomizil"):
			page.Domicile = value
		case key == "index":
			page.IndexName = value
		}
	})
}

func parseHoldingRows(doc *goquery.Document) []HoldingRow {
	var holdings []HoldingRow

	doc.Find(`tr[data-testid="etf-holdings_top-holdings_row"]`).Each(func(_ int, row *goquery.Selection) {
		name := cleanText(row.Find(`[data-testid*="top-holdings"][data-testid*="name"]`).First())
		weight, ok := parsePercent(row.Find(`[data-testid*="top-holdings"][data-testid*="percentage"]`).First().Text())
		if name == "" || !ok {
			return
		}

		holding := HoldingRow{Name: name, Weight: weight}
		row.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			if m := stockProfilePattern.FindStringSubmatch(href); m != nil {
				holding.ISIN = m[1]
				return false
			}
			return true
		})
		holdings = append(holdings, holding)
	})

	if len(holdings) == 0 {
		holdings = parseHoldingsFallback(doc)
	}
	return holdings
}

// parseHoldingsFallback scans for any table whose header row mentions
// holdings when the testid markup is absent.
func parseHoldingsFallback(doc *goquery.Document) []HoldingRow {
	var holdings []HoldingRow

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		header := strings.ToLower(cleanText(rows.First()))
		if !strings.Contains(header, "holding") && !strings.Contains(header, "position") && !strings.Contains(header, "name") {
			return true
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			name := cleanText(cells.Eq(0))
			weight, ok := parsePercent(cells.Eq(1).Text())
			if name != "" && ok {
				holdings = append(holdings, HoldingRow{Name: name, Weight: weight})
			}
		})
		return len(holdings) == 0
	})
	return holdings
}

func parseAllocationRows(doc *goquery.Document, kind AllocationKind) []Row {
	var rows []Row

	selector := fmt.Sprintf(`tr[data-testid="etf-holdings_%s_row"]`, kind)
	nameSel := fmt.Sprintf(`[data-testid*="%s"][data-testid*="name"]`, kind)
	weightSel := fmt.Sprintf(`[data-testid*="%s"][data-testid*="percentage"]`, kind)

	doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
		name := cleanText(row.Find(nameSel).First())
		weight, ok := parsePercent(row.Find(weightSel).First().Text())
		if name != "" && ok {
			rows = append(rows, Row{Name: name, Weight: weight})
		}
	})
	return rows
}

type wicketEnvelope struct {
	Components []struct {
		Text string `xml:",chardata"`
	} `xml:"component"`
}

// parseWicketRows digs allocation rows out of a Wicket AJAX response:
// an XML envelope whose component elements carry HTML table fragments
// in CDATA. Responses that are not valid XML are tried as plain HTML.
func parseWicketRows(body []byte, kind AllocationKind) []Row {
	var envelope wicketEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil
		}
		return genericTableRows(doc)
	}

	var rows []Row
	for _, component := range envelope.Components {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(component.Text))
		if err != nil {
			continue
		}
		rows = append(rows, genericTableRows(doc)...)
	}
	if len(rows) > 0 {
		return rows
	}

	// Some responses embed testid rows outside any component element.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	return parseAllocationRows(doc, kind)
}

func genericTableRows(doc *goquery.Document) []Row {
	var rows []Row
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		name := cleanText(cells.Eq(0))
		weight, ok := parsePercent(cells.Eq(1).Text())
		if name != "" && ok {
			rows = append(rows, Row{Name: name, Weight: weight})
		}
	})
	return rows
}

func parsePercent(text string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// cleanText collapses all whitespace runs, NBSP included, to single
// spaces.
func cleanText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
