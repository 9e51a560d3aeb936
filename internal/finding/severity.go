package finding

import "strings"

// Severity is the ranked importance of a finding.
type Severity string

const (
	SeverityUnknown  Severity = "UNKNOWN"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns an integer rank for comparison (Low=1, Critical=4).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity maps a feed severity to the ranked enum. Aliases used by the
// scanners ("CRITICAL_BOMB", "HIGH_RISK", "moderate", ...) are accepted; any
// other non-empty value is SeverityUnknown.
func ParseSeverity(raw string) Severity {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.TrimSuffix(v, "_BOMB")
	v = strings.TrimSuffix(v, "_RISK")
	switch v {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM", "MODERATE":
		return SeverityMedium
	case "LOW", "INFO":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}
