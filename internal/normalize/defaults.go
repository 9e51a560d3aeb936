package normalize

import "github.com/threatdesk/threatdesk/internal/finding"

const defaultOwnerTag = "AIT-Unknown"

// Defaults are the values substituted for fields a source record leaves out.
type Defaults struct {
	Type              string
	Description       string
	Severity          finding.Severity
	Status            finding.Status
	RiskScore         float64
	RemediationAction string
	OwnerTag          string
}

var sourceDefaults = map[finding.Source]Defaults{
	finding.SourceThreat: {
		Type:              "Logic Bomb",
		Description:       "Security threat detected",
		Severity:          finding.SeverityHigh,
		Status:            finding.StatusActive,
		RiskScore:         8,
		RemediationAction: "Review and neutralize security threat",
		OwnerTag:          defaultOwnerTag,
	},
	finding.SourceVulnerability: {
		Type:              "Security Vulnerability",
		Severity:          finding.SeverityMedium,
		Status:            finding.StatusActive,
		RiskScore:         5,
		RemediationAction: "Review and remediate security vulnerability",
		OwnerTag:          defaultOwnerTag,
	},
	finding.SourceInfrastructure: {
		Type:              "Infrastructure Vulnerability",
		Severity:          finding.SeverityMedium,
		Status:            finding.StatusActive,
		RiskScore:         5,
		RemediationAction: "Review and remediate infrastructure vulnerability",
		OwnerTag:          defaultOwnerTag,
	},
	finding.SourceImport: {
		Type:              "Application Vulnerability",
		Severity:          finding.SeverityMedium,
		Status:            finding.StatusActive,
		RiskScore:         5,
		RemediationAction: "Update to latest version",
		OwnerTag:          defaultOwnerTag,
	},
}

// DefaultsFor returns the substitution table for source. Unknown sources get
// the vulnerability-scan defaults so severity and status are never empty.
func DefaultsFor(source finding.Source) Defaults {
	if d, ok := sourceDefaults[source]; ok {
		return d
	}
	return sourceDefaults[finding.SourceVulnerability]
}
