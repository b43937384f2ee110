// Package model contains simple struct definitions shared across packages.
package model

// CallType classifies a call-log entry. In Go a type declared via "type X int"
// creates a new named type, so a CallType cannot be mixed up with the raw
// integer codes stored by the log provider.
type CallType int

const (
	// Other covers every code the exporter does not name explicitly
	// (voicemail, rejected, blocked, zero, negatives...).
	Other CallType = iota
	Incoming
	Outgoing
	Missed
)

// Raw type codes used by the platform call log provider.
const (
	CodeIncoming = 1
	CodeOutgoing = 2
	CodeMissed   = 3
)

// TypeFromCode maps a raw provider code onto a CallType. The mapping is total:
// unrecognised codes become Other rather than an error.
func TypeFromCode(code int) CallType {
	switch code {
	case CodeIncoming:
		return Incoming
	case CodeOutgoing:
		return Outgoing
	case CodeMissed:
		return Missed
	default:
		return Other
	}
}

// String returns the label written into the Type column.
func (t CallType) String() string {
	switch t {
	case Incoming:
		return "Incoming"
	case Outgoing:
		return "Outgoing"
	case Missed:
		return "Missed"
	default:
		return "Other"
	}
}

// MarshalText lets JSON encoders emit the label instead of the number.
func (t CallType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// RawCall is one row exactly as the log provider hands it over. CachedName is
// a pointer because the provider distinguishes "no cached name" (nil) from an
// empty one; struct tags mirror the provider's column names.
type RawCall struct {
	Type       int     `json:"type"`
	Number     string  `json:"number"`
	CachedName *string `json:"name"`
	Date       int64   `json:"date"`
	Duration   string  `json:"duration"`
}

// CallRecord is the normalised unit consumed by the CSV formatter.
type CallRecord struct {
	Type        CallType `json:"type"`
	Number      string   `json:"number"`
	ContactName string   `json:"contactName"`
	// Timestamp is the call start in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
	// DurationSeconds is kept as text, exactly as the provider stored it.
	DurationSeconds string `json:"duration"`
}

// Normalize converts a provider row into a CallRecord. It is the only place
// where an absent cached name turns into the empty string.
func Normalize(raw RawCall) CallRecord {
	name := ""
	if raw.CachedName != nil {
		name = *raw.CachedName
	}
	return CallRecord{
		Type:            TypeFromCode(raw.Type),
		Number:          raw.Number,
		ContactName:     name,
		Timestamp:       raw.Date,
		DurationSeconds: raw.Duration,
	}
}

// NormalizeAll normalises every row, preserving order and count.
func NormalizeAll(raws []RawCall) []CallRecord {
	out := make([]CallRecord, len(raws))
	for i, raw := range raws {
		out[i] = Normalize(raw)
	}
	return out
}

// Name returns a pointer to s for RawCall.CachedName.
func Name(s string) *string {
	return &s
}
