package diagnostics

import (
	"errors"
	"fmt"
)

// Kind tags a failure with its origin so callers can choose a policy
// without string-matching messages.
type Kind string

const (
	KindIngestionParseRow     Kind = "ingestion_parse_row"
	KindIngestionEmpty        Kind = "ingestion_empty"
	KindScrapeNetwork         Kind = "scrape_network"
	KindScrapeParse           Kind = "scrape_parse"
	KindScrapeUnusable        Kind = "scrape_unusable"
	KindFundDetailMissing     Kind = "fund_detail_missing"
	KindCurrencyLookupMissing Kind = "currency_lookup_missing"
	KindTickerLookupFailed    Kind = "ticker_lookup_failed"
	KindHistoryWriteFailed    Kind = "history_write_failed"
)

// Error is a tagged error. Hint carries an operator-facing suggestion
// that travels with the failure into diagnostics and API responses.
type Error struct {
	Kind Kind
	Msg  string
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a tagged error with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError tags an underlying error.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithHint attaches an operator hint and returns the error for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// KindOf extracts the kind from an error chain, or "" if the chain
// carries no tagged error.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}

// HintOf extracts the operator hint from an error chain, if any.
func HintOf(err error) string {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Hint
	}
	return ""
}
