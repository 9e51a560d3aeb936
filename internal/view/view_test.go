package view

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/threatdesk/threatdesk/internal/finding"
)

func sample() []finding.Finding {
	mk := func(source finding.Source, id string, sev finding.Severity, typ, ait string) finding.Finding {
		return finding.Finding{
			ID:       finding.NewID(source, id),
			Source:   source,
			Severity: sev,
			Status:   finding.StatusActive,
			Type:     typ,
			OwnerTag: ait,
		}
	}
	items := []finding.Finding{
		mk(finding.SourceVulnerability, "1", finding.SeverityLow, "SQL Injection", "AIT-1"),
		mk(finding.SourceThreat, "2", finding.SeverityCritical, "Logic Bomb", "AIT-2"),
		mk(finding.SourceInfrastructure, "3", finding.SeverityMedium, "Open Port", "AIT-1"),
		mk(finding.SourceVulnerability, "4", finding.SeverityUnknown, "XSS", "AIT-3"),
		mk(finding.SourceThreat, "5", finding.SeverityHigh, "Backdoor", "AIT-2"),
		mk(finding.SourceVulnerability, "6", finding.SeverityHigh, "Hardcoded Secret", "AIT-1"),
		mk(finding.SourceImport, "7", finding.SeverityMedium, "Application Vulnerability", "AIT-4"),
	}
	items[5].Status = finding.StatusNeutralized
	items[2].RepoName = "Infra-Live"
	items[0].FilePath = "src/db/query.go"
	items[0].LineNumber = 88
	return items
}

func TestApply_EmptyFilterKeepsEverything(t *testing.T) {
	items := sample()
	got, err := Apply(items, Filter{}, DefaultSort(), 1, 100)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Filtered != len(items) || got.Total != len(items) {
		t.Fatalf("Filtered/Total = %d/%d, want %d", got.Filtered, got.Total, len(items))
	}
}

func TestApply_FilteredNeverExceedsTotal(t *testing.T) {
	filters := []Filter{
		{Search: "ait-1"},
		{Category: "threat-detection"},
		{Category: "APPLICATION"},
		{Severity: "high", Status: "active"},
		{Type: "inject"},
		{OwnerTag: "AIT-2"},
		{Repo: "infra-live"},
		{Search: "no such thing"},
	}
	items := sample()
	for _, f := range filters {
		got, err := Apply(items, f, DefaultSort(), 1, 3)
		if err != nil {
			t.Fatalf("Apply(%+v) error = %v", f, err)
		}
		if got.Filtered > got.Total {
			t.Fatalf("Apply(%+v) Filtered = %d > Total = %d", f, got.Filtered, got.Total)
		}
	}
}

func TestFilter_Predicates(t *testing.T) {
	items := sample()
	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "search id", filter: Filter{Search: "threat-5"}, want: []string{"threat-5"}},
		{name: "search line number", filter: Filter{Search: "88"}, want: []string{"vuln-1"}},
		{name: "search file path", filter: Filter{Search: "QUERY.GO"}, want: []string{"vuln-1"}},
		{name: "category by source", filter: Filter{Category: "threat-detection"}, want: []string{"threat-2", "threat-5"}},
		{name: "category by remediation branch", filter: Filter{Category: "infrastructure"}, want: []string{"infra-3"}},
		{name: "type substring", filter: Filter{Type: "inj"}, want: []string{"vuln-1"}},
		{name: "severity and status", filter: Filter{Severity: "HIGH", Status: "ACTIVE"}, want: []string{"threat-5"}},
		{name: "repo case-insensitive", filter: Filter{Repo: "infra-live"}, want: []string{"infra-3"}},
		{name: "owner", filter: Filter{OwnerTag: "AIT-1"}, want: []string{"vuln-1", "infra-3", "vuln-6"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, f := range items {
				if tc.filter.Match(f) {
					got = append(got, f.ID.String())
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tc.want) {
				t.Fatalf("matched = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSort_SeverityDescendingIsRankedAndStable(t *testing.T) {
	items := sample()
	DefaultSort().Apply(items)

	var got []string
	for _, f := range items {
		got = append(got, f.ID.String())
	}
	want := []string{"threat-2", "threat-5", "vuln-6", "infra-3", "import-7", "vuln-1", "vuln-4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSort_StringKeysIgnoreCase(t *testing.T) {
	items := []finding.Finding{
		{ID: finding.NewID(finding.SourceThreat, "1"), Type: "beta"},
		{ID: finding.NewID(finding.SourceThreat, "2"), Type: "Alpha"},
		{ID: finding.NewID(finding.SourceThreat, "3"), Type: "GAMMA"},
	}
	Sort{Key: SortType}.Apply(items)
	if items[0].Type != "Alpha" || items[1].Type != "beta" || items[2].Type != "GAMMA" {
		t.Fatalf("order = %s, %s, %s", items[0].Type, items[1].Type, items[2].Type)
	}
}

func TestSort_MissingTimestampSortsAsEpoch(t *testing.T) {
	items := []finding.Finding{
		{ID: finding.NewID(finding.SourceThreat, "new"), Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: finding.NewID(finding.SourceThreat, "missing")},
		{ID: finding.NewID(finding.SourceThreat, "old"), Timestamp: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	Sort{Key: SortTimestamp}.Apply(items)
	if items[0].ID.OriginalID != "missing" || items[1].ID.OriginalID != "old" || items[2].ID.OriginalID != "new" {
		t.Fatalf("order = %s, %s, %s", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestSortToggle(t *testing.T) {
	s := DefaultSort()
	s = s.Toggle(SortType)
	if s.Key != SortType || s.Desc {
		t.Fatalf("new key = %+v, want type ascending", s)
	}
	s = s.Toggle(SortType)
	if !s.Desc {
		t.Fatalf("repeat key = %+v, want type descending", s)
	}
	s = s.Toggle(SortType)
	if s.Desc {
		t.Fatalf("third toggle = %+v, want type ascending", s)
	}
}

func TestApply_PagesConcatenateToFullList(t *testing.T) {
	items := sample()
	for pageSize := 1; pageSize <= len(items)+1; pageSize++ {
		full, err := Apply(items, Filter{}, DefaultSort(), 1, len(items))
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		first, err := Apply(items, Filter{}, DefaultSort(), 1, pageSize)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		wantPages := (len(items) + pageSize - 1) / pageSize
		if first.TotalPages != wantPages {
			t.Fatalf("pageSize %d: TotalPages = %d, want %d", pageSize, first.TotalPages, wantPages)
		}

		var joined []finding.Finding
		for p := 1; p <= first.TotalPages; p++ {
			page, err := Apply(items, Filter{}, DefaultSort(), p, pageSize)
			if err != nil {
				t.Fatalf("Apply(page %d) error = %v", p, err)
			}
			joined = append(joined, page.Items...)
		}
		if len(joined) != len(full.Items) {
			t.Fatalf("pageSize %d: joined %d items, want %d", pageSize, len(joined), len(full.Items))
		}
		for i := range joined {
			if joined[i].ID != full.Items[i].ID {
				t.Fatalf("pageSize %d: item %d = %s, want %s", pageSize, i, joined[i].ID, full.Items[i].ID)
			}
		}
	}
}

func TestApply_ClampsPageAndReportsRange(t *testing.T) {
	got, err := Apply(sample(), Filter{}, DefaultSort(), 99, 3)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Page != 3 || got.TotalPages != 3 {
		t.Fatalf("Page/TotalPages = %d/%d, want 3/3", got.Page, got.TotalPages)
	}
	if got.ShowingFrom != 7 || got.ShowingTo != 7 {
		t.Fatalf("showing = %d-%d, want 7-7", got.ShowingFrom, got.ShowingTo)
	}
}

func TestApply_EmptyResult(t *testing.T) {
	got, err := Apply(nil, Filter{}, DefaultSort(), 1, 10)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.TotalPages != 0 || got.Page != 1 || len(got.Items) != 0 {
		t.Fatalf("got = %+v, want empty first page", got)
	}
}

func TestApply_RejectsNonPositivePageSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := Apply(sample(), Filter{}, DefaultSort(), 1, size); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("Apply(pageSize=%d) error = %v, want ErrInvalidPageSize", size, err)
		}
	}
}

func TestApply_DoesNotReorderInput(t *testing.T) {
	items := sample()
	first := items[0].ID
	if _, err := Apply(items, Filter{}, DefaultSort(), 1, 10); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if items[0].ID != first {
		t.Fatalf("input reordered: items[0] = %s, want %s", items[0].ID, first)
	}
}

func TestState_ResetsPage(t *testing.T) {
	s := NewState(10).WithPage(4)
	if s.Page != 4 {
		t.Fatalf("Page = %d, want 4", s.Page)
	}
	if got := s.WithFilter(Filter{Search: "x"}).Page; got != 1 {
		t.Fatalf("after filter change Page = %d, want 1", got)
	}
	if got := s.WithFilter(Filter{}).Page; got != 4 {
		t.Fatalf("unchanged filter Page = %d, want 4", got)
	}
	if got := s.ToggleSort(SortType).Page; got != 1 {
		t.Fatalf("after sort change Page = %d, want 1", got)
	}
	if got := s.WithPageSize(50).Page; got != 1 {
		t.Fatalf("after page size change Page = %d, want 1", got)
	}
}

func TestBuildFacets(t *testing.T) {
	got := BuildFacets(sample())
	wantSev := []string{"CRITICAL", "HIGH", "MEDIUM", "LOW", "UNKNOWN"}
	if fmt.Sprint(got.Severities) != fmt.Sprint(wantSev) {
		t.Fatalf("Severities = %v, want %v", got.Severities, wantSev)
	}
	if fmt.Sprint(got.OwnerTags) != fmt.Sprint([]string{"AIT-1", "AIT-2", "AIT-3", "AIT-4"}) {
		t.Fatalf("OwnerTags = %v", got.OwnerTags)
	}
	if fmt.Sprint(got.Repos) != fmt.Sprint([]string{"Infra-Live"}) {
		t.Fatalf("Repos = %v", got.Repos)
	}
}

func TestParseSortKey(t *testing.T) {
	if got, err := ParseSortKey("vulnerability_type"); err != nil || got != SortType {
		t.Fatalf("ParseSortKey(vulnerability_type) = %q, %v", got, err)
	}
	if _, err := ParseSortKey("bogus"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}
