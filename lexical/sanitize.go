package lexical

import "strings"

// sanitizeTerm strips FTS5 operator characters from a single token and wraps
// it in double quotes so it is always treated as a plain term.
func sanitizeTerm(term string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '(', ')', '*', '^', ':', '{', '}', '-', '+':
			return ' '
		default:
			return r
		}
	}, term)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	return `"` + cleaned + `"`
}

// buildMatchQuery converts a free-text query into an FTS5 MATCH expression.
// Each whitespace-separated token becomes a quoted term and the terms are
// OR-joined, so a note matching any query word is a candidate and BM25
// ranking decides the order. Returns "" when nothing searchable remains.
func buildMatchQuery(query string) string {
	var parts []string
	for _, field := range strings.Fields(query) {
		if term := sanitizeTerm(field); term != "" {
			parts = append(parts, term)
		}
	}
	return strings.Join(parts, " OR ")
}
