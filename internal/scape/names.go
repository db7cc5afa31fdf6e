package scape

import "strings"

var aliases = map[string]string{
	"xor":         "xor",
	"xor-mimic":   "xor",
	"pattern":     "pattern",
	"pattern-csv": "pattern",
	"csv":         "pattern",
}

// NormalizeName canonicalizes a scape name: case, separators, a "scape"
// prefix and a "sim" suffix are ignored. Unknown names are returned in
// normalized form.
func NormalizeName(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range nameCandidates(normalized) {
		if canonical, ok := aliases[candidate]; ok {
			return canonical
		}
	}
	return normalized
}

func nameCandidates(normalized string) []string {
	candidates := []string{normalized}
	stripped := strings.Trim(strings.TrimPrefix(normalized, "scape"), "-")
	if stripped != "" && stripped != normalized {
		candidates = append(candidates, stripped)
	}
	for _, c := range append([]string(nil), candidates...) {
		trimmed := strings.Trim(strings.TrimSuffix(c, "sim"), "-")
		if trimmed != "" && trimmed != c {
			candidates = append(candidates, trimmed)
		}
	}
	return candidates
}
