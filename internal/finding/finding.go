package finding

import (
	"errors"
	"strings"
	"time"
)

// Category selects the remediation branch for a finding.
type Category string

const (
	CategoryThreat         Category = "THREAT"
	CategoryApplication    Category = "APPLICATION"
	CategoryInfrastructure Category = "INFRASTRUCTURE"
)

// ImportKind records which scanner family a spreadsheet row belongs to.
type ImportKind string

const (
	ImportApplication    ImportKind = "application"
	ImportInfrastructure ImportKind = "infrastructure"
)

// ParseImportKind defaults to application for empty input.
func ParseImportKind(raw string) (ImportKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "application":
		return ImportApplication, nil
	case "infrastructure":
		return ImportInfrastructure, nil
	default:
		return "", errors.New("import kind must be one of: application, infrastructure")
	}
}

// Finding is one normalized security issue regardless of originating feed.
type Finding struct {
	ID                ID         `json:"id"`
	Source            Source     `json:"source"`
	Origin            string     `json:"origin,omitempty"`
	Severity          Severity   `json:"severity"`
	Status            Status     `json:"status"`
	Type              string     `json:"type"`
	Title             string     `json:"title,omitempty"`
	Description       string     `json:"description"`
	Timestamp         time.Time  `json:"timestamp"`
	OwnerTag          string     `json:"owner_tag"`
	ProductKeyTag     string     `json:"product_key_tag,omitempty"`
	RepoName          string     `json:"repo_name,omitempty"`
	RuleID            string     `json:"rule_id,omitempty"`
	RiskScore         float64    `json:"risk_score"`
	RemediationAction string     `json:"remediation_action"`
	FilePath          string     `json:"file_path,omitempty"`
	FileName          string     `json:"file_name,omitempty"`
	LineNumber        int        `json:"line_number,omitempty"`
	IssuesFound       int        `json:"issues_found,omitempty"`
	QualityGate       string     `json:"quality_gate,omitempty"`
	GISID             string     `json:"gis_id,omitempty"`
	ImportKind        ImportKind `json:"import_kind,omitempty"`
}

// Category derives the remediation branch from the owning source.
func (f Finding) Category() Category {
	switch f.Source {
	case SourceThreat:
		return CategoryThreat
	case SourceInfrastructure:
		return CategoryInfrastructure
	case SourceImport:
		if f.ImportKind == ImportInfrastructure {
			return CategoryInfrastructure
		}
		return CategoryApplication
	default:
		return CategoryApplication
	}
}

// Validate reports the first violated invariant of a normalized finding.
func (f Finding) Validate() error {
	switch {
	case f.ID.IsZero():
		return errors.New("finding id is required")
	case f.ID.Source != f.Source:
		return errors.New("finding id source does not match finding source")
	case f.Severity == "":
		return errors.New("finding severity is required")
	case f.Status != StatusActive && f.Status != StatusNeutralized:
		return errors.New("finding status must be ACTIVE or NEUTRALIZED")
	}
	return nil
}

// PopulatedFields counts the optional fields that carry data.
func (f Finding) PopulatedFields() int {
	n := 0
	for _, s := range []string{
		f.Origin, f.Type, f.Title, f.Description, f.OwnerTag, f.ProductKeyTag, f.RepoName,
		f.RuleID, f.RemediationAction, f.FilePath, f.FileName, f.QualityGate, f.GISID,
	} {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if !f.Timestamp.IsZero() {
		n++
	}
	if f.RiskScore != 0 {
		n++
	}
	if f.LineNumber != 0 {
		n++
	}
	if f.IssuesFound != 0 {
		n++
	}
	return n
}
