package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dharsanguruparan/CallLogCSV/internal/model"
)

// Opener returns a fresh reader over a dump each time an export runs.
type Opener func() (io.ReadCloser, error)

// FileOpener opens path, or stdin when path is "-".
func FileOpener(path string) Opener {
	return func() (io.ReadCloser, error) {
		if path == "-" {
			return io.NopCloser(os.Stdin), nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return f, nil
	}
}

// JSONSource reads a JSON array of provider rows, e.g.
// [{"type":1,"number":"555","name":null,"date":1709303525000,"duration":"42"}].
type JSONSource struct {
	open Opener
}

// NewJSONSource constructs a JSONSource.
func NewJSONSource(open Opener) *JSONSource {
	return &JSONSource{open: open}
}

// Calls decodes the dump in file order.
func (s *JSONSource) Calls(ctx context.Context) ([]model.RawCall, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := s.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return DecodeJSON(rc)
}

// DecodeJSON parses a JSON array of provider rows.
func DecodeJSON(r io.Reader) ([]model.RawCall, error) {
	var calls []model.RawCall
	if err := json.NewDecoder(r).Decode(&calls); err != nil {
		if err == io.EOF {
			return []model.RawCall{}, nil
		}
		return nil, fmt.Errorf("decode call log json: %w", err)
	}
	if calls == nil {
		calls = []model.RawCall{}
	}
	return calls, nil
}
