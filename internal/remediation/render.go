package remediation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/threatdesk/threatdesk/internal/finding"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("remediation").Funcs(template.FuncMap{
	"upper":      strings.ToUpper,
	"orNA":       orNA,
	"datetime":   formatTimestamp,
	"hclString":  hclString,
	"hclComment": hclComment,
}).ParseFS(templateFS, "templates/*.tmpl"))

var templateByCategory = map[finding.Category]string{
	finding.CategoryThreat:         "threat_guide.md.tmpl",
	finding.CategoryApplication:    "application_prompt.md.tmpl",
	finding.CategoryInfrastructure: "infrastructure.tf.tmpl",
}

type renderData struct {
	Finding   finding.Finding
	DisplayID string
	Category  finding.Category
	Selection Selection
}

// Render produces the artifact body. Output depends only on the finding and
// the selection, so equal inputs always render identical bytes.
func Render(f finding.Finding, sel Selection) ([]byte, error) {
	c := f.Category()
	name, ok := templateByCategory[c]
	if !ok {
		return nil, fmt.Errorf("no remediation template for category %s", c)
	}
	var buf bytes.Buffer
	data := renderData{Finding: f, DisplayID: f.ID.String(), Category: c, Selection: sel}
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func orNA(v any) string {
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" || s == "0" {
		return "N/A"
	}
	return s
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

var hclEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"${", "$${",
	"%{", "%%{",
)

// hclString renders s as a quoted HCL string literal. Template sequences are
// escaped so values are never interpolated by Terraform.
func hclString(s string) string {
	return `"` + hclEscaper.Replace(s) + `"`
}

// hclComment flattens s onto one line so it cannot escape a # comment.
func hclComment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
