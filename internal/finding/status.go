package finding

import (
	"fmt"
	"strings"
)

// Status is the acknowledgement state of a finding.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusNeutralized Status = "NEUTRALIZED"
)

// ParseStatus maps feed status values onto the two reachable states.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE", "ACTIVE_THREAT", "OPEN":
		return StatusActive, nil
	case "NEUTRALIZED", "RESOLVED", "MITIGATED", "CLOSED":
		return StatusNeutralized, nil
	default:
		return "", fmt.Errorf("unknown finding status %q", raw)
	}
}

// Toggle returns the opposite status. It is the only transition a finding has.
func (s Status) Toggle() Status {
	if s == StatusNeutralized {
		return StatusActive
	}
	return StatusNeutralized
}

func (s Status) String() string {
	return string(s)
}
