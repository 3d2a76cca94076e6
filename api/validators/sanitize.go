package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString trims the input, folds runs of whitespace and control
// characters into single spaces and cuts it to maxLen runes. Shopper supplied
// names, notes and review text pass through it before storage.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	for _, r := range strings.TrimSpace(input) {
		if r == utf8.RuneError || unicode.IsSpace(r) || unicode.IsControl(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	out := b.String()
	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		runes := []rune(out)
		out = strings.TrimSpace(string(runes[:maxLen]))
	}
	return out
}

// SanitizeMultiline is SanitizeString for free text where line breaks matter,
// such as review comments and order notes. Blank runs collapse to one empty line.
func SanitizeMultiline(input string, maxLen int) string {
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		clean := SanitizeString(line, 0)
		if clean == "" {
			if len(kept) > 0 && !blank {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		blank = false
		kept = append(kept, clean)
	}
	out := strings.TrimSpace(strings.Join(kept, "\n"))
	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		out = strings.TrimSpace(string([]rune(out)[:maxLen]))
	}
	return out
}
