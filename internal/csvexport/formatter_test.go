package csvexport

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dharsanguruparan/CallLogCSV/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func utcContext() FormatContext {
	return FormatContext{Location: time.UTC, Locale: language.AmericanEnglish}
}

func TestFormatter_Format(t *testing.T) {
	f := New(utcContext())

	t.Run("SingleIncoming", func(t *testing.T) {
		doc := f.Format([]model.CallRecord{{
			Type:            model.Incoming,
			Number:          "5551234567",
			ContactName:     "Jane Doe",
			Timestamp:       1709303525000,
			DurationSeconds: "42",
		}})
		assert.Equal(t, "Type,PhoneNumber,ContactName,Date,Duration\nIncoming,5551234567,Jane Doe,2024-03-01 14:32:05,42\n", doc.Text)
		assert.Equal(t, 1, doc.Rows)
		assert.False(t, doc.NoRecords())
	})

	t.Run("MissedWithoutName", func(t *testing.T) {
		raw := model.RawCall{Type: model.CodeMissed, Number: "5559876543", Date: 1709370600000, Duration: "0"}
		doc := f.Format([]model.CallRecord{model.Normalize(raw)})
		assert.Equal(t, "Type,PhoneNumber,ContactName,Date,Duration\nMissed,5559876543,,2024-03-02 09:10:00,0\n", doc.Text)
		assert.NotContains(t, doc.Text, "null")
	})

	t.Run("EmptyInput", func(t *testing.T) {
		for _, in := range [][]model.CallRecord{nil, {}} {
			doc := f.Format(in)
			assert.Equal(t, "Type,PhoneNumber,ContactName,Date,Duration\n", doc.Text)
			assert.True(t, doc.NoRecords())
			assert.Equal(t, []byte(doc.Text), doc.Bytes())
		}
	})

	t.Run("EmbeddedCommasAreNotEscaped", func(t *testing.T) {
		rec := model.CallRecord{Type: model.Outgoing, Number: "555", ContactName: "Doe, Jane", Timestamp: 0, DurationSeconds: "7"}
		assert.Equal(t, "Outgoing,555,Doe, Jane,1970-01-01 00:00:00,7", f.FormatRow(rec))
	})
}

func TestFormatter_Properties(t *testing.T) {
	f := New(utcContext())
	rng := rand.New(rand.NewSource(7))

	for n := 0; n < 50; n++ {
		records := make([]model.CallRecord, n)
		for i := range records {
			code := rng.Intn(2001) - 1000
			records[i] = model.Normalize(model.RawCall{
				Type:     code,
				Number:   strconv.Itoa(rng.Intn(1_000_000_000)),
				Date:     rng.Int63n(4_000_000_000_000),
				Duration: strconv.Itoa(rng.Intn(3600)),
			})
		}

		doc := f.Format(records)
		require.True(t, strings.HasSuffix(doc.Text, "\n"))
		lines := strings.Split(strings.TrimSuffix(doc.Text, "\n"), "\n")
		require.Len(t, lines, n+1)
		require.Equal(t, Header, lines[0])

		for i, rec := range records {
			fields := strings.Split(lines[i+1], ",")
			require.Len(t, fields, 5)
			assert.Equal(t, rec.Type.String(), fields[0])
			assert.Equal(t, rec.Number, fields[1])
			assert.Equal(t, "", fields[2])
			assert.Equal(t, time.UnixMilli(rec.Timestamp).UTC().Format(DateLayout), fields[3])
			assert.Equal(t, rec.DurationSeconds, fields[4])
		}

		assert.Equal(t, doc, f.Format(records), "format must be deterministic")
	}
}

func TestFormatter_TypeMapping(t *testing.T) {
	f := New(utcContext())
	for code := -500; code <= 500; code++ {
		row := f.FormatRow(model.Normalize(model.RawCall{Type: code}))
		label := row[:strings.IndexByte(row, ',')]
		switch code {
		case 1:
			require.Equal(t, "Incoming", label)
		case 2:
			require.Equal(t, "Outgoing", label)
		case 3:
			require.Equal(t, "Missed", label)
		default:
			require.Equal(t, "Other", label, "code %d", code)
		}
	}
}

func TestFormatter_Timezone(t *testing.T) {
	rec := model.CallRecord{Type: model.Incoming, Timestamp: 1709303525000}
	tokyo := New(FormatContext{Location: time.FixedZone("JST", 9*3600)})
	assert.Contains(t, tokyo.FormatRow(rec), "2024-03-01 23:32:05")

	lax := New(FormatContext{Location: time.FixedZone("PST", -8*3600)})
	assert.Contains(t, lax.FormatRow(rec), "2024-03-01 06:32:05")
}

func TestFormatter_QuoteMode(t *testing.T) {
	f := New(utcContext(), WithQuoteMode(QuoteRFC4180))

	doc := f.Format([]model.CallRecord{
		{Type: model.Incoming, Number: "555", ContactName: "Doe, Jane", DurationSeconds: "1"},
		{Type: model.Missed, Number: "556", ContactName: `The "Boss"`, DurationSeconds: "0"},
		{Type: model.Outgoing, Number: "557", ContactName: "Plain", DurationSeconds: "3"},
	})

	expected := Header + "\n" +
		`Incoming,555,"Doe, Jane",1970-01-01 00:00:00,1` + "\n" +
		`Missed,556,"The ""Boss""",1970-01-01 00:00:00,0` + "\n" +
		"Outgoing,557,Plain,1970-01-01 00:00:00,3\n"
	assert.Equal(t, expected, doc.Text)
	assert.Equal(t, 3, doc.Rows)
}

func TestParseQuoteMode(t *testing.T) {
	testCases := []struct {
		in          string
		expected    QuoteMode
		expectError bool
	}{
		{in: "", expected: QuoteNone},
		{in: "none", expected: QuoteNone},
		{in: " RFC4180 ", expected: QuoteRFC4180},
		{in: "strict", expected: QuoteRFC4180},
		{in: "tsv", expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			m, err := ParseQuoteMode(tc.in)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, m)
		})
	}
	assert.Equal(t, "rfc4180", QuoteRFC4180.String())
	assert.Equal(t, "none", QuoteNone.String())
}
