package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dharsanguruparan/CallLogCSV/internal/model"
)

// ContentQuerySource parses the text printed by the platform content query
// tool for the call log provider:
//
//	Row: 0 type=1, number=5551234567, name=Jane Doe, date=1709303525000, duration=42
//	Row: 1 type=3, number=5559876543, name=NULL, date=1709370600000, duration=0
type ContentQuerySource struct {
	open Opener
}

// NewContentQuerySource constructs a ContentQuerySource.
func NewContentQuerySource(open Opener) *ContentQuerySource {
	return &ContentQuerySource{open: open}
}

// Calls parses the dump in row order.
func (s *ContentQuerySource) Calls(ctx context.Context) ([]model.RawCall, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := s.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseContentQuery(rc)
}

const nullValue = "NULL"

// ParseContentQuery reads "Row:" lines. The provider's "No result found."
// banner and blank lines are skipped.
func ParseContentQuery(r io.Reader) ([]model.RawCall, error) {
	calls := []model.RawCall{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == "No result found." {
			continue
		}
		rest, ok := strings.CutPrefix(line, "Row:")
		if !ok {
			return nil, fmt.Errorf("unexpected line %q", line)
		}
		idx, body, _ := strings.Cut(strings.TrimSpace(rest), " ")
		call, err := parseRow(body)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", idx, err)
		}
		calls = append(calls, call)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read content query output: %w", err)
	}
	return calls, nil
}

func parseRow(body string) (model.RawCall, error) {
	var call model.RawCall
	cols := splitColumns(body)
	for _, required := range []string{"type", "date"} {
		if _, ok := cols[required]; !ok {
			return call, fmt.Errorf("missing column %s", required)
		}
	}
	for key, val := range cols {
		switch key {
		case "type":
			code, err := strconv.Atoi(val)
			if err != nil {
				return call, fmt.Errorf("parse type %q: %w", val, err)
			}
			call.Type = code
		case "number":
			if val != nullValue {
				call.Number = val
			}
		case "name":
			if val != nullValue {
				call.CachedName = model.Name(val)
			}
		case "date":
			ms, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return call, fmt.Errorf("parse date %q: %w", val, err)
			}
			call.Date = ms
		case "duration":
			if val != nullValue {
				call.Duration = val
			}
		}
	}
	return call, nil
}

// callLogColumns are the columns the platform call log provider can print.
// Only these start a new column; any other "k=v" piece is part of the
// previous value.
var callLogColumns = map[string]bool{
	"_id": true, "number": true, "presentation": true, "date": true,
	"duration": true, "data_usage": true, "type": true, "features": true,
	"subscription_component_name": true, "subscription_id": true,
	"phone_account_address": true, "phone_account_hidden": true, "new": true,
	"name": true, "numbertype": true, "numberlabel": true, "countryiso": true,
	"voicemail_uri": true, "is_read": true, "geocoded_location": true,
	"lookup_uri": true, "matched_number": true, "normalized_number": true,
	"photo_id": true, "photo_uri": true, "formatted_number": true,
	"add_for_all_users": true, "last_modified": true, "transcription": true,
	"transcription_state": true, "via_number": true, "post_dial_digits": true,
	"call_screening_app_name": true, "call_screening_component_name": true,
	"block_reason": true, "missed_reason": true, "priority": true,
	"subject": true, "location": true, "composer_photo_uri": true,
	"is_business_call": true, "asserted_display_name": true,
}

// splitColumns splits "k=v, k=v" pairs. A ", " piece that does not start
// with a known column belongs to the previous value, so cached names such as
// "Doe, Jane" or "Smith, a=b" survive.
func splitColumns(body string) map[string]string {
	cols := make(map[string]string)
	var last string
	for _, part := range strings.Split(body, ", ") {
		key, val, ok := strings.Cut(part, "=")
		if ok && callLogColumns[key] {
			cols[key] = val
			last = key
			continue
		}
		if last != "" {
			cols[last] += ", " + part
		}
	}
	return cols
}
