package finding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Source identifies the subsystem that owns a finding.
type Source string

const (
	SourceThreat         Source = "threat-detection"
	SourceVulnerability  Source = "vulnerability-scan"
	SourceInfrastructure Source = "infrastructure-scan"
	SourceImport         Source = "spreadsheet-import"
)

// Sources lists every known source in feed order.
func Sources() []Source {
	return []Source{SourceThreat, SourceVulnerability, SourceInfrastructure, SourceImport}
}

// ParseSource reads a source discriminant from external input such as a URL
// path segment or a database column.
func ParseSource(raw string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(raw))) {
	case SourceThreat:
		return SourceThreat, nil
	case SourceVulnerability:
		return SourceVulnerability, nil
	case SourceInfrastructure:
		return SourceInfrastructure, nil
	case SourceImport:
		return SourceImport, nil
	default:
		return "", fmt.Errorf("unknown finding source %q", raw)
	}
}

func (s Source) String() string {
	return string(s)
}

func (s Source) displayPrefix() string {
	switch s {
	case SourceThreat:
		return "threat"
	case SourceVulnerability:
		return "vuln"
	case SourceInfrastructure:
		return "infra"
	case SourceImport:
		return "import"
	default:
		return "unknown"
	}
}

// ID is the globally unique identity of a finding.
type ID struct {
	Source     Source
	OriginalID string
}

// NewID builds an identifier from its parts.
func NewID(source Source, originalID string) ID {
	return ID{Source: source, OriginalID: strings.TrimSpace(originalID)}
}

// IsZero reports whether the identifier is missing either part.
func (id ID) IsZero() bool {
	return id.Source == "" || id.OriginalID == ""
}

// String renders the identifier for display. The result is not meant to be
// parsed back; use the Source and OriginalID fields instead.
func (id ID) String() string {
	return id.Source.displayPrefix() + "-" + id.OriginalID
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source     Source `json:"source"`
		OriginalID string `json:"original_id"`
		Display    string `json:"display"`
	}{id.Source, id.OriginalID, id.String()})
}
