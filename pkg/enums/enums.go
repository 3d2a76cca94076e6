// Package enums holds the string-backed enumerations shared by the API,
// services and the database schema. Each value is stored verbatim in a
// text column guarded by a CHECK constraint.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func member[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

// lookup matches raw against set. Matching is exact unless fold is set.
func lookup[T ~string](set []T, raw, label string, fold bool) (T, error) {
	raw = strings.TrimSpace(raw)
	for _, v := range set {
		if string(v) == raw || (fold && strings.EqualFold(string(v), raw)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q", label, raw)
}
