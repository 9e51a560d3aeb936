package view

import (
	"slices"
	"strings"

	"github.com/threatdesk/threatdesk/internal/finding"
)

// Facets are the distinct values offered by the filter controls.
type Facets struct {
	Categories  []string `json:"categories"`
	Severities  []string `json:"severities"`
	Statuses    []string `json:"statuses"`
	Types       []string `json:"types"`
	OwnerTags   []string `json:"owner_tags"`
	ProductKeys []string `json:"product_keys"`
	Repos       []string `json:"repos"`
}

// BuildFacets collects sorted distinct values. Severities are ordered by rank,
// most severe first.
func BuildFacets(findings []finding.Finding) Facets {
	var (
		categories = map[string]struct{}{}
		severities = map[finding.Severity]struct{}{}
		statuses   = map[string]struct{}{}
		types      = map[string]struct{}{}
		owners     = map[string]struct{}{}
		products   = map[string]struct{}{}
		repos      = map[string]struct{}{}
	)
	for _, f := range findings {
		categories[string(f.Category())] = struct{}{}
		severities[f.Severity] = struct{}{}
		statuses[string(f.Status)] = struct{}{}
		addNonEmpty(types, f.Type)
		addNonEmpty(owners, f.OwnerTag)
		addNonEmpty(products, f.ProductKeyTag)
		addNonEmpty(repos, f.RepoName)
	}

	sev := make([]finding.Severity, 0, len(severities))
	for s := range severities {
		sev = append(sev, s)
	}
	slices.SortFunc(sev, func(a, b finding.Severity) int {
		if a.Rank() != b.Rank() {
			return b.Rank() - a.Rank()
		}
		return strings.Compare(string(a), string(b))
	})
	sevNames := make([]string, 0, len(sev))
	for _, s := range sev {
		sevNames = append(sevNames, string(s))
	}

	return Facets{
		Categories:  sortedKeys(categories),
		Severities:  sevNames,
		Statuses:    sortedKeys(statuses),
		Types:       sortedKeys(types),
		OwnerTags:   sortedKeys(owners),
		ProductKeys: sortedKeys(products),
		Repos:       sortedKeys(repos),
	}
}

func addNonEmpty(set map[string]struct{}, v string) {
	if v = strings.TrimSpace(v); v != "" {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
