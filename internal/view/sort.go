package view

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/normalize"
)

// SortKey names a sortable finding field.
type SortKey string

const (
	SortSeverity    SortKey = "severity"
	SortTimestamp   SortKey = "timestamp"
	SortRiskScore   SortKey = "risk_score"
	SortLineNumber  SortKey = "line_number"
	SortID          SortKey = "id"
	SortType        SortKey = "type"
	SortTitle       SortKey = "title"
	SortDescription SortKey = "description"
	SortStatus      SortKey = "status"
	SortSource      SortKey = "source"
	SortOwnerTag    SortKey = "owner_tag"
	SortProductKey  SortKey = "product_key"
	SortRepo        SortKey = "repo"
)

var compareFuncs = map[SortKey]func(a, b finding.Finding) int{
	SortSeverity: func(a, b finding.Finding) int { return cmp.Compare(a.Severity.Rank(), b.Severity.Rank()) },
	SortTimestamp: func(a, b finding.Finding) int {
		// The zero time sorts as the Unix epoch.
		return cmp.Compare(epochNanos(a), epochNanos(b))
	},
	SortRiskScore:   func(a, b finding.Finding) int { return cmp.Compare(a.RiskScore, b.RiskScore) },
	SortLineNumber:  func(a, b finding.Finding) int { return cmp.Compare(a.LineNumber, b.LineNumber) },
	SortID:          func(a, b finding.Finding) int { return compareFold(a.ID.String(), b.ID.String()) },
	SortType:        func(a, b finding.Finding) int { return compareFold(a.Type, b.Type) },
	SortTitle:       func(a, b finding.Finding) int { return compareFold(a.Title, b.Title) },
	SortDescription: func(a, b finding.Finding) int { return compareFold(a.Description, b.Description) },
	SortStatus:      func(a, b finding.Finding) int { return compareFold(string(a.Status), string(b.Status)) },
	SortSource:      func(a, b finding.Finding) int { return compareFold(string(a.Source), string(b.Source)) },
	SortOwnerTag:    func(a, b finding.Finding) int { return compareFold(a.OwnerTag, b.OwnerTag) },
	SortProductKey:  func(a, b finding.Finding) int { return compareFold(a.ProductKeyTag, b.ProductKeyTag) },
	SortRepo:        func(a, b finding.Finding) int { return compareFold(a.RepoName, b.RepoName) },
}

// ParseSortKey accepts the column names used by the feeds as aliases.
func ParseSortKey(raw string) (SortKey, error) {
	key := SortKey(normalize.Lower(raw))
	switch key {
	case "vulnerability_type":
		key = SortType
	case "ait_tag", "ait":
		key = SortOwnerTag
	case "spk_tag", "spk":
		key = SortProductKey
	case "repo_name":
		key = SortRepo
	case "created_at", "detected_at":
		key = SortTimestamp
	}
	if _, ok := compareFuncs[key]; !ok {
		return "", fmt.Errorf("unknown sort key %q", raw)
	}
	return key, nil
}

// Sort is the active ordering.
type Sort struct {
	Key  SortKey `json:"key"`
	Desc bool    `json:"desc"`
}

// DefaultSort ranks the most severe findings first.
func DefaultSort() Sort {
	return Sort{Key: SortSeverity, Desc: true}
}

// Toggle selects key. Selecting the active key flips the direction; a new key
// starts ascending.
func (s Sort) Toggle(key SortKey) Sort {
	if s.Key == key {
		return Sort{Key: key, Desc: !s.Desc}
	}
	return Sort{Key: key}
}

// Apply sorts items in place. Equal keys keep their input order.
func (s Sort) Apply(items []finding.Finding) {
	compare, ok := compareFuncs[s.Key]
	if !ok {
		compare = compareFuncs[SortSeverity]
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := compare(items[i], items[j])
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func epochNanos(f finding.Finding) int64 {
	if f.Timestamp.IsZero() {
		return 0
	}
	return f.Timestamp.UnixNano()
}
