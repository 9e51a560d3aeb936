package view

import (
	"strconv"

	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/normalize"
)

// Filter is a conjunction of independent predicates. Empty fields do not
// constrain the result.
type Filter struct {
	Search     string `json:"q,omitempty"`
	Category   string `json:"category,omitempty"`
	Severity   string `json:"severity,omitempty"`
	Status     string `json:"status,omitempty"`
	Type       string `json:"type,omitempty"`
	OwnerTag   string `json:"ait,omitempty"`
	ProductKey string `json:"spk,omitempty"`
	Repo       string `json:"repo,omitempty"`
}

// Normalized trims every field.
func (f Filter) Normalized() Filter {
	return Filter{
		Search:     normalize.Trim(f.Search),
		Category:   normalize.Trim(f.Category),
		Severity:   normalize.Trim(f.Severity),
		Status:     normalize.Trim(f.Status),
		Type:       normalize.Trim(f.Type),
		OwnerTag:   normalize.Trim(f.OwnerTag),
		ProductKey: normalize.Trim(f.ProductKey),
		Repo:       normalize.Trim(f.Repo),
	}
}

func (f Filter) IsZero() bool {
	return f.Normalized() == Filter{}
}

// Match reports whether item satisfies every predicate.
func (f Filter) Match(item finding.Finding) bool {
	if !matchSearch(item, f.Search) {
		return false
	}
	if v := normalize.Trim(f.Category); v != "" &&
		!normalize.EqualFoldTrimmed(v, string(item.Source)) &&
		!normalize.EqualFoldTrimmed(v, string(item.Category())) {
		return false
	}
	if !matchExact(string(item.Severity), f.Severity) {
		return false
	}
	if !matchExact(string(item.Status), f.Status) {
		return false
	}
	if !normalize.ContainsFold(item.Type, f.Type) {
		return false
	}
	if !matchExact(item.OwnerTag, f.OwnerTag) {
		return false
	}
	if !matchExact(item.ProductKeyTag, f.ProductKey) {
		return false
	}
	return matchExact(item.RepoName, f.Repo)
}

func matchExact(value, want string) bool {
	if normalize.Trim(want) == "" {
		return true
	}
	return normalize.EqualFoldTrimmed(value, want)
}

func matchSearch(item finding.Finding, q string) bool {
	if normalize.Trim(q) == "" {
		return true
	}
	fields := []string{
		item.ID.String(),
		item.Title,
		item.Description,
		item.Type,
		item.OwnerTag,
		item.ProductKeyTag,
		item.RepoName,
		item.RuleID,
		string(item.Severity),
		string(item.Status),
		item.FilePath,
		item.FileName,
	}
	if item.LineNumber != 0 {
		fields = append(fields, strconv.Itoa(item.LineNumber))
	}
	for _, field := range fields {
		if normalize.ContainsFold(field, q) {
			return true
		}
	}
	return false
}
