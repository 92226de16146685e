package metastore

import (
	"fmt"
	"time"
)

// dbTimeLayouts covers the string encodings the supported drivers produce
// for timestamp columns. Postgres hands back time.Time directly; sqlite
// stores TEXT and the exact shape depends on how the value was bound.
var dbTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999+00:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseDBTime converts a scanned timestamp value into a time.Time.
func parseDBTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseDBTimeString(t)
	case []byte:
		return parseDBTimeString(string(t))
	case nil:
		return time.Time{}, fmt.Errorf("timestamp is null")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// parseOptionalDBTime is parseDBTime for nullable columns.
func parseOptionalDBTime(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := parseDBTime(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDBTimeString(s string) (time.Time, error) {
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
