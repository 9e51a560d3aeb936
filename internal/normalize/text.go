package normalize

import "strings"

func Trim(value string) string {
	return strings.TrimSpace(value)
}

func Lower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func EqualFoldTrimmed(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
// An empty needle always matches.
func ContainsFold(haystack, needle string) bool {
	needle = Lower(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = Trim(v); v != "" {
			return v
		}
	}
	return ""
}
