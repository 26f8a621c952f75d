package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp decodes the date formats the backend is known to emit. A
// graphql-go String field backed by time.Time is serialised with
// time.Time.String, so that layout is accepted alongside RFC 3339.
//
// A string in no accepted layout decodes to the zero time with Raw set,
// so one malformed row does not fail a whole collection.
type Timestamp struct {
	time.Time
	// Raw holds the undecodable input, if any.
	Raw string
}

// Unparsed reports whether the backend sent a value that could not be decoded.
func (ts Timestamp) Unparsed() bool {
	return ts.IsZero() && ts.Raw != ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	// time.Time.String appends a monotonic clock reading for values that carry one.
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrInvalidInput, s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: timestamp must be a string", ErrInvalidInput)
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		*ts = Timestamp{Raw: s}
		return nil
	}
	*ts = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Format(time.RFC3339))
}
