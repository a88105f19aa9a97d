package codec

import (
	"fmt"
	"time"
)

// TimeLayout is the wire format for timestamps: UTC with millisecond
// precision and a literal Z suffix.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Time wraps time.Time with a fixed JSON representation. Values are always
// serialized in UTC at millisecond precision regardless of their location.
type Time struct {
	time.Time
}

// NewTime wraps a time.Time.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// Now returns the current instant as a Time.
func Now() Time {
	return Time{Time: time.Now()}
}

// MarshalJSON serializes the timestamp in the wire format.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(TimeLayout) + `"`), nil
}

// UnmarshalJSON parses the wire format, falling back to RFC 3339 variants so
// servers that send more or fewer fractional digits still decode.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid timestamp %s", s)
	}
	s = s[1 : len(s)-1]

	for _, layout := range []string{TimeLayout, time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
