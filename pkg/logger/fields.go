package logger

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

const (
	masked       = "[redacted]"
	maxFrames    = 16
	tokenPreview = 8
)

// credentialHints are matched against the lower-cased field name.
var credentialHints = []string{"password", "secret", "signature", "authorization", "token"}

func mask(key string, value any) any {
	k := strings.ToLower(key)
	for _, hint := range credentialHints {
		if strings.Contains(k, hint) {
			return masked
		}
	}
	return value
}

func abbreviate(token string) string {
	token = strings.TrimSpace(token)
	r := []rune(token)
	if len(r) <= tokenPreview {
		return token
	}
	return string(r[:tokenPreview]) + "…"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// callers renders up to maxFrames frames as "func file:line", skipping skip
// frames including runtime.Callers itself.
func callers(skip int) []string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line))
		}
		if !more {
			break
		}
	}
	return out
}
