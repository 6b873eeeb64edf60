package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/refdata"
)

// sectorColumns are searched in order; the first present and non-empty
// one supplies the declared sector for a row.
var sectorColumns = []string{
	"Branchen (GICS, Sektoren) (Ebene 1)",
	"Branchen (GICS, Sektoren)",
	"Branche",
	"Sektor",
	"Sector",
}

// Parser reads portfolio snapshot CSV exports.
type Parser struct {
	baseCurrency string
	diag         *diagnostics.Collector
	log          zerolog.Logger
}

// NewParser creates a snapshot parser. Values without an explicit
// currency are attributed to baseCurrency.
func NewParser(baseCurrency string, diag *diagnostics.Collector, log zerolog.Logger) *Parser {
	return &Parser{
		baseCurrency: baseCurrency,
		diag:         diag,
		log:          log.With().Str("component", "ingestion").Logger(),
	}
}

// Parse consumes a semicolon-delimited snapshot with a header row and
// returns the classified positions plus aggregate counts. Rows that
// fail to parse are skipped with a diagnostic; a snapshot with zero
// parseable rows is an error.
func (p *Parser) Parse(r io.Reader) (*Snapshot, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindIngestionEmpty, err, "snapshot has no header row")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Name", "Marktwert"} {
		if _, ok := columns[required]; !ok {
			return nil, diagnostics.NewError(diagnostics.KindIngestionEmpty, "snapshot header is missing the %q column", required)
		}
	}

	snapshot := &Snapshot{
		BaseCurrency: p.baseCurrency,
		ParsedAt:     time.Now(),
	}

	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			p.diag.Warning("ingestion", fmt.Sprintf("row %d: %v, row skipped", row, err), "")
			continue
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		name := field("Name")
		if name == "" || strings.Contains(name, "Summe") {
			continue
		}

		quantityRaw := field("Bestand")
		note := field("Notiz")

		// A row is cash when it has no quantity, when the name marks an
		// account, or when the note equals a cash marker.
		lowerName := strings.ToLower(name)
		isCash := quantityRaw == "" ||
			strings.Contains(lowerName, "konto") ||
			strings.Contains(lowerName, "cash") ||
			refdata.IsCashNote(note)

		if isCash {
			value, err := parseGermanFloat(field("Marktwert"))
			if err != nil {
				p.diag.Warning("ingestion", fmt.Sprintf("row %d (%s): unparsable market value, row skipped", row, name), "")
				continue
			}
			snapshot.Positions = append(snapshot.Positions, Position{
				Name:     name,
				Type:     InstrumentCash,
				Currency: p.baseCurrency,
				Value:    value,
				Note:     note,
			})
			continue
		}

		quantity, err := parseGermanFloat(quantityRaw)
		if err != nil {
			p.diag.Warning("ingestion", fmt.Sprintf("row %d (%s): unparsable quantity %q, row skipped", row, name, quantityRaw), "")
			continue
		}
		value, err := parseGermanFloat(field("Marktwert"))
		if err != nil {
			p.diag.Warning("ingestion", fmt.Sprintf("row %d (%s): unparsable market value, row skipped", row, name), "")
			continue
		}

		symbol := field("Symbol")
		position := Position{
			Name:     name,
			ISIN:     field("ISIN"),
			Symbol:   symbol,
			Type:     classifySecurity(name, symbol, note),
			Currency: currencyFromPrice(field("Kurs"), p.baseCurrency),
			Quantity: quantity,
			Value:    value,
			Note:     note,
		}

		for _, column := range sectorColumns {
			if declared := field(column); declared != "" {
				position.Sector = refdata.CanonicalSectorDeclared(declared)
				break
			}
		}

		snapshot.Positions = append(snapshot.Positions, position)
	}

	if len(snapshot.Positions) == 0 {
		p.diag.Error("ingestion", "snapshot contains no parseable positions", "")
		return nil, diagnostics.NewError(diagnostics.KindIngestionEmpty, "snapshot contains no parseable positions")
	}

	for _, position := range snapshot.Positions {
		snapshot.TotalValue += position.Value
		switch position.Type {
		case InstrumentFund:
			snapshot.FundCount++
		case InstrumentStock:
			snapshot.StockCount++
		}
	}
	snapshot.TotalPositions = len(snapshot.Positions)

	p.log.Info().
		Int("positions", snapshot.TotalPositions).
		Int("funds", snapshot.FundCount).
		Int("stocks", snapshot.StockCount).
		Float64("total_value", snapshot.TotalValue).
		Msg("Snapshot parsed")

	return snapshot, nil
}

// classifySecurity assigns an instrument type by keyword scan over the
// uppercased name and symbol, with a cash override when the note
// contains a cash marker.
func classifySecurity(name, symbol, note string) InstrumentType {
	if note != "" && refdata.HasCashNoteMarker(note) {
		return InstrumentCash
	}
	switch {
	case refdata.IsMoneyMarketName(name):
		return InstrumentCash
	case refdata.IsFundName(name, symbol):
		return InstrumentFund
	case refdata.IsCommodityName(name):
		return InstrumentCommodity
	case refdata.IsBondName(name):
		return InstrumentBond
	default:
		return InstrumentStock
	}
}

// currencyFromPrice extracts an ISO-4217 prefix from a price field like
// "USD 269,48". Absence implies the base currency.
func currencyFromPrice(price, baseCurrency string) string {
	if before, _, found := strings.Cut(price, " "); found {
		code := strings.TrimSpace(before)
		if len(code) == 3 && code == strings.ToUpper(code) && isLetters(code) {
			return code
		}
	}
	return baseCurrency
}

// parseGermanFloat parses European-convention numbers: dot thousands
// separator, comma decimal separator ("2.279,86").
func parseGermanFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
