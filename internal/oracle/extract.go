package oracle

import (
	"regexp"
	"strings"
)

var (
	jsonFenceRe  = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	codeFenceRe  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// ExtractJSON digs a JSON object out of a model reply that may wrap it in
// markdown fences or surrounding prose. When nothing object-shaped is found
// the trimmed content is returned as-is and left for the JSON parser to
// reject.
func ExtractJSON(content string) string {
	if m := jsonFenceRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		candidate := strings.TrimSpace(m[1])
		if strings.HasPrefix(candidate, "{") && strings.HasSuffix(candidate, "}") {
			return candidate
		}
	}
	if m := jsonObjectRe.FindString(content); m != "" {
		return m
	}
	return strings.TrimSpace(content)
}
