package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// timestampLayouts are tried in order when decoding. The remote CRM emits
// zone-less local date-times; RFC 3339 and plain dates are also accepted.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time that may be missing or unparseable.
// Decoding never fails on a bad value; it yields an invalid Timestamp so
// callers can decide on a fallback instead of dropping the record.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// At returns a valid Timestamp for t.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// ParseTimestamp parses s with the accepted layouts.
func ParseTimestamp(s string) Timestamp {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return At(t)
		}
	}
	return Timestamp{}
}

// Before reports whether ts is strictly before other. Invalid values never compare.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.Valid && other.Valid && ts.Time.Before(other.Time)
}

// MarshalJSON writes RFC 3339 or null.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts strings in any accepted layout, null, or garbage.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// numbers, objects: treat as unparseable
		return nil
	}
	*ts = ParseTimestamp(s)
	return nil
}
