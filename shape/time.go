package shape

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Time is a timestamp that decodes from epoch milliseconds (number or
// numeric string) or from the textual layouts the backend emits, and
// encodes back to epoch milliseconds. The zero Time encodes as null.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func UnixMilli(ms int64) Time { return Time{time.UnixMilli(ms).UTC()} }

func (t Time) Millis() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, t.UnixMilli(), 10), nil
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` || s == "" {
		t.Time = time.Time{}
		return nil
	}
	if s[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("shape: time %s: %w", s, err)
		}
		return t.parseText(strings.TrimSpace(unq))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("shape: time %s: not epoch millis", s)
	}
	t.Time = time.UnixMilli(int64(f)).UTC()
	return nil
}

func (t *Time) parseText(s string) error {
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	for _, layout := range timeLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("shape: time %q: unknown layout", s)
}
