// Package aggregate merges normalized findings from every source into one
// collection with unique identifiers.
package aggregate

import (
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/normalize"
)

// OriginExtension is the reporter name used by the editor extension scanner.
const OriginExtension = "vscode_extension"

// Collision describes two records sharing an id whose precedence was decided
// only by the completeness fallback between different non-extension origins.
type Collision struct {
	ID       finding.ID
	Kept     string
	Replaced string
}

// Options tunes aggregation.
type Options struct {
	// OnAmbiguous is called for collisions no fidelity rule covers.
	OnAmbiguous func(Collision)
}

// Stats summarizes one aggregation.
type Stats struct {
	Input      int
	Unique     int
	Duplicates int
	Ambiguous  int
}

// Aggregate concatenates lists and deduplicates by id.
func Aggregate(lists ...[]finding.Finding) []finding.Finding {
	out, _ := AggregateWithStats(Options{}, lists...)
	return out
}

// AggregateWithStats is Aggregate with collision reporting. Output order is the
// order in which each id was first seen; a replaced record takes the slot of
// the one it replaced.
func AggregateWithStats(opts Options, lists ...[]finding.Finding) ([]finding.Finding, Stats) {
	var stats Stats
	for _, l := range lists {
		stats.Input += len(l)
	}

	out := make([]finding.Finding, 0, stats.Input)
	index := make(map[finding.ID]int, stats.Input)
	for _, l := range lists {
		for _, f := range l {
			i, seen := index[f.ID]
			if !seen {
				index[f.ID] = len(out)
				out = append(out, f)
				continue
			}
			stats.Duplicates++
			existing := out[i]
			replace := prefersCandidate(existing, f)
			if ambiguous(existing, f) {
				stats.Ambiguous++
				if opts.OnAmbiguous != nil {
					c := Collision{ID: f.ID, Kept: existing.Origin, Replaced: f.Origin}
					if replace {
						c.Kept, c.Replaced = f.Origin, existing.Origin
					}
					opts.OnAmbiguous(c)
				}
			}
			if replace {
				out[i] = f
			}
		}
	}
	stats.Unique = len(out)
	return out, stats
}

// Fidelity ranks record origins; higher wins.
func Fidelity(origin string) int {
	if normalize.EqualFoldTrimmed(origin, OriginExtension) {
		return 2
	}
	return 1
}

// Prefer picks the winner between an existing record and a candidate with the
// same id:
//  1. higher origin fidelity
//  2. a non-zero issue count over a zero one
//  3. more populated fields
//  4. otherwise the existing record
func Prefer(existing, candidate finding.Finding) finding.Finding {
	if prefersCandidate(existing, candidate) {
		return candidate
	}
	return existing
}

func prefersCandidate(existing, candidate finding.Finding) bool {
	if fe, fc := Fidelity(existing.Origin), Fidelity(candidate.Origin); fe != fc {
		return fc > fe
	}
	if (existing.IssuesFound > 0) != (candidate.IssuesFound > 0) {
		return candidate.IssuesFound > 0
	}
	return candidate.PopulatedFields() > existing.PopulatedFields()
}

func ambiguous(a, b finding.Finding) bool {
	if Fidelity(a.Origin) != 1 || Fidelity(b.Origin) != 1 {
		return false
	}
	return !normalize.EqualFoldTrimmed(a.Origin, b.Origin)
}
