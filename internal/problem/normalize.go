package problem

import "strings"

// Normalize canonicalizes problem names and their common aliases.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	if canonical, ok := canonicalProblemName(strings.ReplaceAll(normalized, "-", "")); ok {
		return canonical
	}
	return normalized
}

func canonicalProblemName(compact string) (string, bool) {
	switch compact {
	case "onemax", "ones", "countones":
		return "onemax", true
	case "target", "targetstrand", "matchtarget":
		return "target", true
	case "trap", "deceptivetrap", "traps":
		return "trap", true
	case "hiff", "hierarchicaliff":
		return "hiff", true
	default:
		return "", false
	}
}
