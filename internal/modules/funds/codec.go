package funds

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Section headers come in two styles: the generated "# …" form and the
// bare-keyword form some hand-maintained files use. Matching is by
// prefix so trailing annotations like "(%)" are tolerated.
var sectionHeaders = map[string][]string{
	"metadata": {"# ETF Metadata", "METADATA"},
	"country":  {"# Country Allocation", "COUNTRY_ALLOCATION"},
	"sector":   {"# Sector Allocation", "SECTOR_ALLOCATION"},
	"currency": {"# Currency Allocation", "CURRENCY_ALLOCATION"},
	"holdings": {"# Top Holdings", "TOP_HOLDINGS"},
}

// ParseDetail decodes a fund detail file. Weights are converted from
// the file's percent scale to fractions. Unparsable allocation and
// holding rows are skipped; a file without any recognised section
// header is rejected.
func ParseDetail(data []byte) (*Detail, error) {
	sections := splitSections(string(data))
	if len(sections) == 0 {
		return nil, fmt.Errorf("not a fund detail file: no section headers found")
	}

	detail := &Detail{Type: TypeStock}
	parseMetadata(sections["metadata"], detail)
	detail.Countries = parseAllocation(sections["country"])
	detail.Sectors = parseAllocation(sections["sector"])
	detail.Currencies = parseAllocation(sections["currency"])
	detail.Holdings = parseHoldings(sections["holdings"])

	return detail, nil
}

// EncodeDetail renders a fund detail file in the generated "# …" style.
// Allocations carry one decimal place, holdings two; the holdings
// section goes through a CSV writer so commas inside company names
// survive.
func EncodeDetail(d *Detail) []byte {
	var buf bytes.Buffer

	buf.WriteString("# ETF Metadata\n")
	fmt.Fprintf(&buf, "ISIN,%s\n", d.ISIN)
	fmt.Fprintf(&buf, "Name,%s\n", d.Name)
	fmt.Fprintf(&buf, "Ticker,%s\n", d.Ticker)
	fmt.Fprintf(&buf, "Type,%s\n", d.Type)
	if d.IndexName != "" {
		fmt.Fprintf(&buf, "Index,%s\n", d.IndexName)
	}
	fmt.Fprintf(&buf, "Region,%s\n", d.Region)
	fmt.Fprintf(&buf, "Currency,%s\n", d.Currency)
	fmt.Fprintf(&buf, "TER,%s\n", d.TER)
	if d.ProxyISIN != "" {
		fmt.Fprintf(&buf, "Proxy ISIN,%s\n", d.ProxyISIN)
	}
	fmt.Fprintf(&buf, "Last Updated,%s\n", d.LastUpdated)
	fmt.Fprintf(&buf, "Source,%s\n", d.Source)
	buf.WriteString("\n")

	writeAllocation(&buf, "# Country Allocation (%)", "Country", d.Countries)
	writeAllocation(&buf, "# Sector Allocation (%)", "Sector", d.Sectors)
	writeAllocation(&buf, "# Currency Allocation (%) - auto-derived from countries", "Currency", d.Currencies)

	buf.WriteString("# Top Holdings\n")
	w := csv.NewWriter(&buf)
	w.Write([]string{"Name", "Weight", "Currency", "Sector", "Country", "ISIN"})
	for _, h := range d.Holdings {
		w.Write([]string{
			h.Name,
			fmt.Sprintf("%.2f", h.Weight*100),
			h.Currency,
			h.Sector,
			h.Country,
			h.ISIN,
		})
	}
	w.Flush()

	return buf.Bytes()
}

// splitSections cuts the file into named sections. Lines before the
// first header and comment lines inside sections are dropped.
func splitSections(content string) map[string]string {
	sections := make(map[string]string)
	current := ""
	var lines []string

	flush := func() {
		if current != "" && len(lines) > 0 {
			sections[current] = strings.Join(lines, "\n")
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		matched := ""
		for key, headers := range sectionHeaders {
			for _, header := range headers {
				if strings.HasPrefix(line, header) {
					matched = key
					break
				}
			}
			if matched != "" {
				break
			}
		}

		if matched != "" {
			flush()
			current = matched
			lines = nil
			continue
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	flush()

	return sections
}

// parseMetadata fills the detail from "Key,Value" lines. The value is
// everything after the first comma so names containing commas survive.
func parseMetadata(content string, d *Detail) {
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "ISIN":
			d.ISIN = value
		case "Name":
			d.Name = value
		case "Ticker":
			d.Ticker = value
		case "Type":
			if value != "" {
				d.Type = value
			}
		case "Index":
			d.IndexName = value
		case "Region":
			d.Region = value
		case "Currency":
			d.Currency = value
		case "TER":
			d.TER = value
		case "Proxy ISIN":
			d.ProxyISIN = value
		case "Last Updated":
			d.LastUpdated = value
		case "Source":
			d.Source = value
		}
	}
}

func parseAllocation(content string) []Allocation {
	if content == "" {
		return nil
	}

	rows := readCSV(content)
	if len(rows) < 2 {
		return nil
	}

	var out []Allocation
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}
		out = append(out, Allocation{
			Name:   strings.TrimSpace(row[0]),
			Weight: weight / 100,
		})
	}
	return out
}

// parseHoldings maps columns by header name so both generated files
// (Name,Weight,Currency,Sector,Country,ISIN) and the older layout with
// an Industry column before Country decode correctly. Files without a
// recognisable header fall back to fixed positions.
func parseHoldings(content string) []Holding {
	if content == "" {
		return nil
	}

	rows := readCSV(content)
	if len(rows) < 2 {
		return nil
	}

	cols := map[string]int{}
	for i, cell := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "name", "weight", "currency", "sector", "country", "industry", "isin":
			cols[strings.ToLower(strings.TrimSpace(cell))] = i
		}
	}
	if _, ok := cols["name"]; !ok {
		cols = map[string]int{"name": 0, "weight": 1, "currency": 2, "sector": 3, "country": 4}
		if len(rows[0]) >= 6 {
			cols["isin"] = 5
		}
	} else if _, ok := cols["weight"]; !ok {
		cols = map[string]int{"name": 0, "weight": 1, "currency": 2, "sector": 3, "country": 4}
		if len(rows[0]) >= 6 {
			cols["isin"] = 5
		}
	}

	minCols := 0
	for _, idx := range cols {
		if idx+1 > minCols {
			minCols = idx + 1
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []Holding
	for _, row := range rows[1:] {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty || len(row) < minCols {
			continue
		}

		weight, err := strconv.ParseFloat(field(row, "weight"), 64)
		if err != nil {
			continue
		}

		out = append(out, Holding{
			Name:     field(row, "name"),
			Weight:   weight / 100,
			Currency: field(row, "currency"),
			Sector:   field(row, "sector"),
			Country:  field(row, "country"),
			ISIN:     field(row, "isin"),
		})
	}
	return out
}

func writeAllocation(buf *bytes.Buffer, header, column string, entries []Allocation) {
	buf.WriteString(header + "\n")
	buf.WriteString(column + ",Weight\n")
	for _, e := range entries {
		fmt.Fprintf(buf, "%s,%.1f\n", e.Name, e.Weight*100)
	}
	buf.WriteString("\n")
}

func readCSV(content string) [][]string {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
