package aggregate

import (
	"testing"

	"github.com/threatdesk/threatdesk/internal/finding"
)

func scan(id, origin string, issues int) finding.Finding {
	return finding.Finding{
		ID:          finding.NewID(finding.SourceVulnerability, id),
		Source:      finding.SourceVulnerability,
		Origin:      origin,
		Severity:    finding.SeverityMedium,
		Status:      finding.StatusActive,
		IssuesFound: issues,
	}
}

func TestAggregate_ExtensionScanWins(t *testing.T) {
	main := scan("abc", "main_scan", 0)
	ext := scan("abc", OriginExtension, 3)

	for _, order := range [][]finding.Finding{{main, ext}, {ext, main}} {
		got := Aggregate(order)
		if len(got) != 1 {
			t.Fatalf("len(got) = %d, want 1", len(got))
		}
		if got[0].Origin != OriginExtension {
			t.Fatalf("winner origin = %q, want %q", got[0].Origin, OriginExtension)
		}
		if got[0].IssuesFound != 3 {
			t.Fatalf("winner IssuesFound = %d, want 3", got[0].IssuesFound)
		}
	}
}

func TestAggregate_ExtensionBeatsMoreCompleteGenericScan(t *testing.T) {
	generic := scan("abc", "main_scan", 10)
	generic.Title = "lots of data"
	ext := scan("abc", OriginExtension, 0)

	got := Aggregate([]finding.Finding{generic}, []finding.Finding{ext})
	if got[0].Origin != OriginExtension {
		t.Fatalf("winner origin = %q, want %q", got[0].Origin, OriginExtension)
	}
}

func TestAggregate_NonEmptyIssuesWinOnEqualFidelity(t *testing.T) {
	empty := scan("abc", "main_scan", 0)
	full := scan("abc", "main_scan", 2)

	got := Aggregate([]finding.Finding{empty, full})
	if got[0].IssuesFound != 2 {
		t.Fatalf("winner IssuesFound = %d, want 2", got[0].IssuesFound)
	}

	got = Aggregate([]finding.Finding{full, empty})
	if got[0].IssuesFound != 2 {
		t.Fatalf("winner IssuesFound = %d, want 2", got[0].IssuesFound)
	}
}

func TestAggregate_MorePopulatedFieldsWin(t *testing.T) {
	sparse := scan("abc", "main_scan", 1)
	rich := scan("abc", "main_scan", 1)
	rich.RepoName = "payments"
	rich.FilePath = "app.py"

	got := Aggregate([]finding.Finding{sparse, rich})
	if got[0].RepoName != "payments" {
		t.Fatalf("winner RepoName = %q, want %q", got[0].RepoName, "payments")
	}
}

func TestAggregate_TieKeepsFirstSeen(t *testing.T) {
	a := scan("abc", "main_scan", 1)
	a.Title = "first"
	b := scan("abc", "main_scan", 1)
	b.Title = "second"

	got := Aggregate([]finding.Finding{a, b})
	if got[0].Title != "first" {
		t.Fatalf("winner Title = %q, want %q", got[0].Title, "first")
	}
}

func TestAggregate_IDsUnique(t *testing.T) {
	lists := [][]finding.Finding{
		{scan("1", "", 0), scan("2", "", 0), scan("1", "", 0)},
		{scan("2", OriginExtension, 1), scan("3", "", 0)},
		{{ID: finding.NewID(finding.SourceThreat, "1"), Source: finding.SourceThreat}},
	}
	got, stats := AggregateWithStats(Options{}, lists...)

	seen := make(map[finding.ID]bool)
	for _, f := range got {
		if seen[f.ID] {
			t.Fatalf("duplicate id %s", f.ID)
		}
		seen[f.ID] = true
	}
	if len(got) != 4 {
		t.Fatalf("len(got) = %d, want 4", len(got))
	}
	if stats.Input != 6 || stats.Unique != 4 || stats.Duplicates != 2 {
		t.Fatalf("stats = %+v, want input 6 unique 4 duplicates 2", stats)
	}
}

func TestAggregate_PreservesFirstSeenOrder(t *testing.T) {
	got := Aggregate(
		[]finding.Finding{scan("b", "", 0), scan("a", "", 0)},
		[]finding.Finding{scan("c", "", 0), scan("b", OriginExtension, 1)},
	)
	want := []string{"b", "a", "c"}
	for i, id := range want {
		if got[i].ID.OriginalID != id {
			t.Fatalf("got[%d] = %s, want %s", i, got[i].ID.OriginalID, id)
		}
	}
	if got[0].Origin != OriginExtension {
		t.Fatalf("replacement should keep slot, got origin %q", got[0].Origin)
	}
}

func TestAggregate_ReportsAmbiguousOrigins(t *testing.T) {
	var collisions []Collision
	opts := Options{OnAmbiguous: func(c Collision) { collisions = append(collisions, c) }}

	_, stats := AggregateWithStats(opts, []finding.Finding{
		scan("abc", "main_scan", 0),
		scan("abc", "nightly_batch", 4),
		scan("abc", OriginExtension, 1),
	})
	if stats.Ambiguous != 1 {
		t.Fatalf("Ambiguous = %d, want 1", stats.Ambiguous)
	}
	if len(collisions) != 1 {
		t.Fatalf("len(collisions) = %d, want 1", len(collisions))
	}
	if collisions[0].Kept != "nightly_batch" || collisions[0].Replaced != "main_scan" {
		t.Fatalf("collision = %+v, want kept nightly_batch replaced main_scan", collisions[0])
	}
}
