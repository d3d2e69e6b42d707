package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is fixed width so stored timestamps sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp is the native date type of stored documents, kept at millisecond precision in UTC.
type Timestamp struct {
	time.Time
}

// FromMillis converts epoch milliseconds to a Timestamp.
func FromMillis(ms int64) Timestamp {
	return Timestamp{time.UnixMilli(ms).UTC()}
}

// FromMillisPtr converts an optional epoch-millisecond value.
func FromMillisPtr(ms *int64) *Timestamp {
	if ms == nil {
		return nil
	}
	ts := FromMillis(*ms)
	return &ts
}

// Millis returns epoch milliseconds.
func (t Timestamp) Millis() int64 {
	return t.UnixMilli()
}

// MillisPtr converts an optional Timestamp back to epoch milliseconds.
func MillisPtr(t *Timestamp) *int64 {
	if t == nil {
		return nil
	}
	ms := t.Millis()
	return &ms
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

// MarshalJSON refuses years the fixed-width layout cannot parse back.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if y := t.UTC().Year(); y < 0 || y > 9999 {
		return nil, fmt.Errorf("timestamp year %d outside 0000-9999", y)
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := time.Parse(TimestampLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
	}
	t.Time = parsed.UTC().Truncate(time.Millisecond)
	return nil
}
