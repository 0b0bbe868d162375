package namer

import (
	"strings"
	"unicode"
)

// Sanitize normalizes raw summarizer output into a name candidate:
// markdown fences and surrounding quotes are stripped, control
// characters dropped, and whitespace runs (including newlines)
// collapsed into single hyphens. Models that reply with "api server
// logs" and models that reply with "api-server-logs" end up in the
// same place.
func Sanitize(raw string) string {
	s := stripMarkdownFences(raw)
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), "-")
}

// stripMarkdownFences removes a surrounding markdown code fence from the
// text, if present. Models sometimes wrap output in ```...``` despite
// instructions not to.
func stripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	// Drop the opening fence line ("```" or "```lang").
	idx := strings.IndexByte(trimmed, '\n')
	if idx < 0 {
		return ""
	}
	trimmed = trimmed[idx+1:]
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
