package normalize

import (
	"testing"
	"time"

	"github.com/threatdesk/threatdesk/internal/finding"
)

func TestPayload_NullSeverityGetsSourceDefault(t *testing.T) {
	res := Payload(finding.SourceVulnerability, []byte(`[{"id":1,"severity":null}]`))
	if len(res.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1", len(res.Findings))
	}
	f := res.Findings[0]
	if got := f.ID.String(); got != "vuln-1" {
		t.Fatalf("ID = %q, want %q", got, "vuln-1")
	}
	if f.Severity != finding.SeverityMedium {
		t.Fatalf("Severity = %q, want %q", f.Severity, finding.SeverityMedium)
	}
	if f.Status != finding.StatusActive {
		t.Fatalf("Status = %q, want %q", f.Status, finding.StatusActive)
	}
	if f.Type != "Security Vulnerability" {
		t.Fatalf("Type = %q, want %q", f.Type, "Security Vulnerability")
	}
	if f.RiskScore != 5 {
		t.Fatalf("RiskScore = %v, want 5", f.RiskScore)
	}
}

func TestNormalize_AlwaysPopulatesSeverityAndStatus(t *testing.T) {
	records := []string{
		`{"id":1}`,
		`{"id":"x","severity":"","status":""}`,
		`{"id":2,"severity":"bogus","status":"pending"}`,
		`{"scan_id":"s1","severity":null,"status":null}`,
		`{"id":3,"threat_level":"CRITICAL_BOMB","status":"ACTIVE_THREAT"}`,
	}
	for _, source := range finding.Sources() {
		for _, raw := range records {
			rec, err := DecodeRecord([]byte(raw))
			if err != nil {
				t.Fatalf("DecodeRecord(%s) error = %v", raw, err)
			}
			f, err := Normalize(source, rec)
			if err != nil {
				t.Fatalf("Normalize(%s, %s) error = %v", source, raw, err)
			}
			if err := f.Validate(); err != nil {
				t.Fatalf("Normalize(%s, %s) produced invalid finding: %v", source, raw, err)
			}
		}
	}
}

func TestNormalize_ThreatDefaults(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"id":42}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	f, err := Normalize(finding.SourceThreat, rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := f.ID.String(); got != "threat-42" {
		t.Fatalf("ID = %q, want %q", got, "threat-42")
	}
	if f.Severity != finding.SeverityHigh {
		t.Fatalf("Severity = %q, want %q", f.Severity, finding.SeverityHigh)
	}
	if f.Type != "Logic Bomb" {
		t.Fatalf("Type = %q, want %q", f.Type, "Logic Bomb")
	}
	if f.Description != "Security threat detected" {
		t.Fatalf("Description = %q, want %q", f.Description, "Security threat detected")
	}
	if f.OwnerTag != "AIT-Unknown" {
		t.Fatalf("OwnerTag = %q, want %q", f.OwnerTag, "AIT-Unknown")
	}
	if f.RiskScore != 8 {
		t.Fatalf("RiskScore = %v, want 8", f.RiskScore)
	}
}

func TestNormalize_ReadsFeedFields(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{
		"id": 7,
		"severity": "critical",
		"status": "NEUTRALIZED",
		"type": "Open Security Group",
		"description": "port 22 open",
		"ait_tag": "AIT-100",
		"spk_tag": "SPK-1",
		"repo_name": "infra-live",
		"risk_score": 9.5,
		"file_path": "main.tf",
		"line_number": 12,
		"created_at": "2024-03-01T10:00:00Z"
	}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	f, err := Normalize(finding.SourceInfrastructure, rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := f.ID.String(); got != "infra-7" {
		t.Fatalf("ID = %q, want %q", got, "infra-7")
	}
	if f.Severity != finding.SeverityCritical || f.Status != finding.StatusNeutralized {
		t.Fatalf("Severity/Status = %s/%s, want CRITICAL/NEUTRALIZED", f.Severity, f.Status)
	}
	if f.OwnerTag != "AIT-100" || f.ProductKeyTag != "SPK-1" || f.RepoName != "infra-live" {
		t.Fatalf("tags = %q/%q/%q", f.OwnerTag, f.ProductKeyTag, f.RepoName)
	}
	if f.RiskScore != 9.5 {
		t.Fatalf("RiskScore = %v, want 9.5", f.RiskScore)
	}
	if f.LineNumber != 12 {
		t.Fatalf("LineNumber = %d, want 12", f.LineNumber)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !f.Timestamp.Equal(want) {
		t.Fatalf("Timestamp = %s, want %s", f.Timestamp, want)
	}
}

func TestNormalize_TimestampFallbackChain(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{raw: `{"id":1,"timestamp":"2024-01-02T03:04:05Z","created_at":"2020-01-01"}`, want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{raw: `{"id":1,"detected_at":"2023-05-06 07:08:09"}`, want: time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)},
		{raw: `{"id":1,"created_date":"2022-12-31"}`, want: time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)},
		{raw: `{"id":1,"timestamp":1700000000}`, want: time.Unix(1700000000, 0).UTC()},
		{raw: `{"id":1,"timestamp":"yesterday"}`, want: time.Time{}},
		{raw: `{"id":1}`, want: time.Time{}},
	}
	for _, tc := range cases {
		rec, err := DecodeRecord([]byte(tc.raw))
		if err != nil {
			t.Fatalf("DecodeRecord(%s) error = %v", tc.raw, err)
		}
		f, err := Normalize(finding.SourceVulnerability, rec)
		if err != nil {
			t.Fatalf("Normalize(%s) error = %v", tc.raw, err)
		}
		if !f.Timestamp.Equal(tc.want) {
			t.Fatalf("Normalize(%s).Timestamp = %s, want %s", tc.raw, f.Timestamp, tc.want)
		}
	}
}

func TestNormalize_ScanRecordsWithoutIDUseScanID(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"scan_id":"abc","source":"vscode_extension","issues":[{},{},{}]}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	f, err := Normalize(finding.SourceVulnerability, rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if f.ID != finding.NewID(finding.SourceVulnerability, "abc") {
		t.Fatalf("ID = %+v, want scan id abc", f.ID)
	}
	if f.Origin != "vscode_extension" {
		t.Fatalf("Origin = %q, want %q", f.Origin, "vscode_extension")
	}
	if f.IssuesFound != 3 {
		t.Fatalf("IssuesFound = %d, want 3", f.IssuesFound)
	}
}

func TestPayload_IDTakesPrecedenceOverScanID(t *testing.T) {
	res := Payload(finding.SourceVulnerability, []byte(`[{"id":1,"scan_id":"s1"},{"id":2,"scan_id":"s1"}]`))
	if len(res.Findings) != 2 {
		t.Fatalf("len(Findings) = %d, want 2", len(res.Findings))
	}
	want := []string{"vuln-1", "vuln-2"}
	for i, f := range res.Findings {
		if got := f.ID.String(); got != want[i] {
			t.Fatalf("Findings[%d].ID = %q, want %q", i, got, want[i])
		}
	}
}

func TestNormalize_ImportKindSelectsType(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"id":"GIS-1","import_kind":"infrastructure"}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	f, err := Normalize(finding.SourceImport, rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if f.Type != "Infrastructure Vulnerability" {
		t.Fatalf("Type = %q, want %q", f.Type, "Infrastructure Vulnerability")
	}
	if f.Category() != finding.CategoryInfrastructure {
		t.Fatalf("Category = %q, want %q", f.Category(), finding.CategoryInfrastructure)
	}
}

func TestPayload_DropsRecordsWithoutID(t *testing.T) {
	res := Payload(finding.SourceThreat, []byte(`{"data":[{"id":1},{"title":"no id"},"not an object",{"id":2}]}`))
	if res.Shape != ShapeWrapped {
		t.Fatalf("Shape = %s, want %s", res.Shape, ShapeWrapped)
	}
	if len(res.Findings) != 2 {
		t.Fatalf("len(Findings) = %d, want 2", len(res.Findings))
	}
	if res.Dropped != 2 {
		t.Fatalf("Dropped = %d, want 2", res.Dropped)
	}
}

func TestPayload_MalformedIsEmpty(t *testing.T) {
	res := Payload(finding.SourceThreat, []byte(`<html>502 Bad Gateway</html>`))
	if res.Shape != ShapeNone {
		t.Fatalf("Shape = %s, want %s", res.Shape, ShapeNone)
	}
	if len(res.Findings) != 0 {
		t.Fatalf("len(Findings) = %d, want 0", len(res.Findings))
	}
}
