// Package csvexport turns normalised call records into the CSV document
// written to the export destination.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/CallLogCSV/internal/model"
)

// Header is the first line of every document.
const Header = "Type,PhoneNumber,ContactName,Date,Duration"

// QuoteMode selects how field values are escaped.
type QuoteMode int

const (
	// QuoteNone joins fields with commas verbatim. Embedded commas or newlines
	// shift the columns of that row.
	QuoteNone QuoteMode = iota
	// QuoteRFC4180 quotes fields that contain separators, quotes or newlines.
	QuoteRFC4180
)

// ParseQuoteMode maps a configuration value onto a QuoteMode.
func ParseQuoteMode(s string) (QuoteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return QuoteNone, nil
	case "rfc4180", "strict":
		return QuoteRFC4180, nil
	default:
		return QuoteNone, fmt.Errorf("unknown quote mode: %s", s)
	}
}

func (m QuoteMode) String() string {
	if m == QuoteRFC4180 {
		return "rfc4180"
	}
	return "none"
}

// Document is the formatted output of one export.
type Document struct {
	Text string
	Rows int
}

// NoRecords reports the advisory empty-input condition. The document is still
// valid and holds the header line only.
func (d Document) NoRecords() bool { return d.Rows == 0 }

// Bytes returns the UTF-8 encoding of the document.
func (d Document) Bytes() []byte { return []byte(d.Text) }

// Formatter renders call records. It holds no mutable state and is safe to
// share between goroutines.
type Formatter struct {
	ctx   FormatContext
	quote QuoteMode
}

// Option customises a Formatter.
type Option func(*Formatter)

// WithQuoteMode overrides the default QuoteNone behaviour.
func WithQuoteMode(m QuoteMode) Option {
	return func(f *Formatter) { f.quote = m }
}

// New creates a Formatter bound to the given timezone and locale.
func New(ctx FormatContext, opts ...Option) *Formatter {
	f := &Formatter{ctx: ctx}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders records using the process default timezone and locale.
func Format(records []model.CallRecord) Document {
	return New(DefaultContext()).Format(records)
}

// Format renders the header followed by one line per record, in input order.
func (f *Formatter) Format(records []model.CallRecord) Document {
	var b strings.Builder
	b.Grow((len(records) + 1) * 64)
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, rec := range records {
		b.WriteString(f.FormatRow(rec))
		b.WriteByte('\n')
	}
	return Document{Text: b.String(), Rows: len(records)}
}

// FormatRow renders a single record without the trailing newline.
func (f *Formatter) FormatRow(rec model.CallRecord) string {
	fields := []string{
		rec.Type.String(),
		rec.Number,
		rec.ContactName,
		f.ctx.FormatTime(rec.Timestamp),
		rec.DurationSeconds,
	}
	if f.quote == QuoteRFC4180 {
		return quoteJoin(fields)
	}
	return strings.Join(fields, ",")
}

func quoteJoin(fields []string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	// Writes into a strings.Builder cannot fail.
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}
