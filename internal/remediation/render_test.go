package remediation

import (
	"strings"
	"testing"

	"github.com/threatdesk/threatdesk/internal/finding"
)

func TestHCLString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "AIT-1", want: `"AIT-1"`},
		{in: `AIT-"1"`, want: `"AIT-\"1\""`},
		{in: `C:\tmp`, want: `"C:\\tmp"`},
		{in: "${var.secret}", want: `"$${var.secret}"`},
		{in: "%{ if true }x%{ endif }", want: `"%%{ if true }x%%{ endif }"`},
		{in: "a\nb", want: `"a\nb"`},
	}
	for _, tt := range tests {
		if got := hclString(tt.in); got != tt.want {
			t.Fatalf("hclString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRender_InfrastructureEscapesUntrustedFields(t *testing.T) {
	f := finding.Finding{
		ID:          finding.NewID(finding.SourceInfrastructure, "9"),
		Source:      finding.SourceInfrastructure,
		Severity:    finding.SeverityHigh,
		Status:      finding.StatusActive,
		Type:        "Infrastructure Vulnerability",
		OwnerTag:    `AIT-"7"${path.root}`,
		Description: "open bucket\nresource \"aws_s3_bucket\" \"x\" {}",
	}

	out, err := Render(f, Selection{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	body := string(out)

	if want := `remediation_owner    = "AIT-\"7\"$${path.root}"`; !strings.Contains(body, want) {
		t.Fatalf("rendered body missing %q:\n%s", want, body)
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "resource ") {
			t.Fatalf("description escaped its comment line:\n%s", body)
		}
	}
	if !strings.Contains(body, `# open bucket resource "aws_s3_bucket" "x" {}`) {
		t.Fatalf("description not flattened into one comment line:\n%s", body)
	}
}
