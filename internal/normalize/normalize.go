package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/threatdesk/threatdesk/internal/finding"
)

// ErrMissingID is returned for records that carry no usable identifier.
var ErrMissingID = errors.New("record has no identifier")

// RawRecord is one decoded record from a read endpoint.
type RawRecord map[string]any

// Result is the outcome of normalizing one payload.
type Result struct {
	Findings []finding.Finding
	Shape    Shape
	Dropped  int
}

var timestampKeys = []string{"timestamp", "created_at", "detected_at", "created_date"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Payload locates the records inside payload and normalizes each of them.
// Records that are not objects or lack an identifier are dropped and counted.
func Payload(source finding.Source, payload []byte) Result {
	shape, items := DetectShape(payload)
	res := Result{Shape: shape, Findings: make([]finding.Finding, 0, len(items))}
	for _, item := range items {
		rec, err := DecodeRecord(item)
		if err != nil {
			res.Dropped++
			continue
		}
		f, err := Normalize(source, rec)
		if err != nil {
			res.Dropped++
			continue
		}
		res.Findings = append(res.Findings, f)
	}
	return res
}

// DecodeRecord decodes one JSON object keeping numbers exact.
func DecodeRecord(raw json.RawMessage) (RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec RawRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("record is not an object")
	}
	return rec, nil
}

// Normalize converts one raw record into a canonical finding, filling absent
// fields from the source defaults.
func Normalize(source finding.Source, rec RawRecord) (finding.Finding, error) {
	// Feed records are addressed by id; scan_id only identifies records
	// from scan history that carry no id of their own.
	originalID := rec.str("id", "scan_id", "gis_id")
	if originalID == "" {
		return finding.Finding{}, fmt.Errorf("normalize %s: %w", source, ErrMissingID)
	}
	d := DefaultsFor(source)

	f := finding.Finding{
		ID:                finding.NewID(source, originalID),
		Source:            source,
		Origin:            rec.str("source"),
		Title:             rec.str("title", "name"),
		OwnerTag:          FirstNonEmpty(rec.str("ait_tag", "ait"), d.OwnerTag),
		ProductKeyTag:     rec.str("spk_tag", "spk"),
		RepoName:          rec.str("repo_name", "repository"),
		RuleID:            rec.str("rule_id"),
		RemediationAction: FirstNonEmpty(rec.str("remediation_action"), d.RemediationAction),
		FilePath:          rec.str("file_path"),
		FileName:          rec.str("file_name"),
		LineNumber:        int(rec.num("line_number", "line")),
		IssuesFound:       rec.issueCount(),
		QualityGate:       rec.str("quality_gate_status", "threat_shield_status", "quality_gate"),
		GISID:             FirstNonEmpty(rec.str("gis_id"), rec.str("id"), originalID),
		Timestamp:         parseTimestamp(rec.first(timestampKeys...)),
	}

	if source == finding.SourceImport {
		kind, err := finding.ParseImportKind(rec.str("import_kind"))
		if err != nil {
			kind = finding.ImportApplication
		}
		f.ImportKind = kind
		if kind == finding.ImportInfrastructure {
			d.Type = sourceDefaults[finding.SourceInfrastructure].Type
		}
	}

	f.Type = FirstNonEmpty(rec.str("vulnerability_type", "type"), d.Type)
	f.Description = FirstNonEmpty(rec.str("description", "rule_description"), d.Description, f.Title, f.Type)

	if raw := rec.str("severity", "threat_level"); raw != "" {
		f.Severity = finding.ParseSeverity(raw)
	} else {
		f.Severity = d.Severity
	}

	f.Status = d.Status
	if raw := rec.str("status"); raw != "" {
		if st, err := finding.ParseStatus(raw); err == nil {
			f.Status = st
		}
	}

	f.RiskScore = rec.num("risk_score")
	if f.RiskScore == 0 {
		f.RiskScore = d.RiskScore
	}

	return f, nil
}

func (r RawRecord) first(keys ...string) any {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func (r RawRecord) str(keys ...string) string {
	return stringValue(r.first(keys...))
}

func (r RawRecord) num(keys ...string) float64 {
	switch v := r.first(keys...).(type) {
	case json.Number:
		n, err := v.Float64()
		if err != nil || math.IsNaN(n) {
			return 0
		}
		return n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func (r RawRecord) issueCount() int {
	if issues, ok := r["issues"].([]any); ok && len(issues) > 0 {
		return len(issues)
	}
	if n := int(r.num("total_threats")); n > 0 {
		return n
	}
	return int(r.num("issues_found"))
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// parseTimestamp returns the zero time for values it cannot read.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return time.Time{}
			}
			n = int64(f)
		}
		return unixTime(n)
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixTime(n)
		}
	}
	return time.Time{}
}

func unixTime(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	// Values this large are milliseconds.
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
