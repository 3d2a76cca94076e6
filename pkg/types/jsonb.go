package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONValue encodes v for a jsonb column. Postgres and sqlite both accept
// the text form.
func JSONValue(v any) (driver.Value, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// ScanJSON decodes a jsonb column into dst. It reports empty=true for NULL
// or an empty payload and leaves dst untouched in that case.
func ScanJSON(src, dst any, what string) (empty bool, err error) {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return true, nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return false, fmt.Errorf("%s: cannot scan %T", what, src)
	}
	if len(raw) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%s: %w", what, err)
	}
	return false, nil
}
