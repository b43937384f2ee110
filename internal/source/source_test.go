package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dharsanguruparan/CallLogCSV/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringOpener(s string) Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

func TestMemorySource(t *testing.T) {
	m := NewMemorySource(model.RawCall{Type: 1, Number: "a"})
	m.Add(model.RawCall{Type: 2, Number: "b"}, model.RawCall{Type: 3, Number: "c"})

	calls, err := m.Calls(context.Background())
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, "a", calls[0].Number)
	assert.Equal(t, "c", calls[2].Number)

	// Mutating the returned slice must not leak into the source.
	calls[0].Number = "changed"
	again, err := m.Calls(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Number)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Calls(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONSource(t *testing.T) {
	t.Run("Decode", func(t *testing.T) {
		src := NewJSONSource(stringOpener(`[
			{"type":1,"number":"5551234567","name":"Jane Doe","date":1709303525000,"duration":"42"},
			{"type":3,"number":"5559876543","name":null,"date":1709370600000,"duration":"0"}
		]`))
		calls, err := src.Calls(context.Background())
		require.NoError(t, err)
		require.Len(t, calls, 2)
		require.NotNil(t, calls[0].CachedName)
		assert.Equal(t, "Jane Doe", *calls[0].CachedName)
		assert.Nil(t, calls[1].CachedName)
		assert.Equal(t, int64(1709370600000), calls[1].Date)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		for _, in := range []string{"", "[]", "null"} {
			calls, err := NewJSONSource(stringOpener(in)).Calls(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, calls)
			assert.Empty(t, calls)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := NewJSONSource(stringOpener(`{"type":`)).Calls(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode call log json")
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "calls.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"type":2,"number":"1","date":5,"duration":"9"}]`), 0o600))
		calls, err := NewJSONSource(FileOpener(path)).Calls(context.Background())
		require.NoError(t, err)
		require.Len(t, calls, 1)
		assert.Equal(t, 2, calls[0].Type)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := NewJSONSource(FileOpener(filepath.Join(t.TempDir(), "nope.json"))).Calls(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseContentQuery(t *testing.T) {
	out := `Row: 0 type=1, number=5551234567, name=Jane Doe, date=1709303525000, duration=42
Row: 1 type=3, number=5559876543, name=NULL, date=1709370600000, duration=0

Row: 2 type=5, number=NULL, name=Doe, John, date=1709370700000, duration=NULL
`
	calls, err := ParseContentQuery(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, calls, 3)

	assert.Equal(t, model.RawCall{Type: 1, Number: "5551234567", CachedName: model.Name("Jane Doe"), Date: 1709303525000, Duration: "42"}, calls[0])
	assert.Nil(t, calls[1].CachedName)
	assert.Equal(t, "0", calls[1].Duration)

	assert.Equal(t, "", calls[2].Number)
	require.NotNil(t, calls[2].CachedName)
	assert.Equal(t, "Doe, John", *calls[2].CachedName)
	assert.Equal(t, "", calls[2].Duration)
	assert.Equal(t, 5, calls[2].Type)
}

func TestParseContentQuery_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		message string
	}{
		{name: "BadType", input: "Row: 4 type=x, date=1", message: "row 4: parse type"},
		{name: "BadDate", input: "Row: 0 type=1, date=soon", message: "row 0: parse date"},
		{name: "MissingDate", input: "Row: 2 type=1, number=5", message: "row 2: missing column date"},
		{name: "Garbage", input: "permission denied", message: "unexpected line"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseContentQuery(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestContentQuerySource_NoResult(t *testing.T) {
	calls, err := NewContentQuerySource(stringOpener("No result found.\n")).Calls(context.Background())
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestParseContentQuery_NameWithEquals(t *testing.T) {
	out := "Row: 0 _id=7, type=1, number=555, name=Smith, a=b, date=10, duration=3, is_read=1\n"
	calls, err := ParseContentQuery(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].CachedName)
	assert.Equal(t, "Smith, a=b", *calls[0].CachedName)
	assert.Equal(t, int64(10), calls[0].Date)
	assert.Equal(t, "3", calls[0].Duration)
}
