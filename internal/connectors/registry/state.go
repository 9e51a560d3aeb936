package registry

import "github.com/threatdesk/threatdesk/internal/finding"

// SourceState is the outcome of the last refresh for one source.
type SourceState struct {
	Kind        finding.Source `json:"kind"`
	DisplayName string         `json:"display_name"`
	Findings    int            `json:"findings"`
	Available   bool           `json:"available"`
	Status      string         `json:"status"`
}

// StatusLabel returns the human-readable status label.
func (s SourceState) StatusLabel() string {
	switch {
	case !s.Available:
		return "Unavailable"
	case s.Findings == 0:
		return "No findings"
	default:
		return "Healthy"
	}
}

// States reports every registered source in feed order. Sources missing from
// counts have not been read yet and are reported as unavailable.
func (r *Registry) States(counts map[finding.Source]int, failed map[finding.Source]error) []SourceState {
	out := make([]SourceState, 0, len(r.order))
	for _, src := range r.All() {
		n, seen := counts[src.Kind()]
		st := SourceState{
			Kind:        src.Kind(),
			DisplayName: src.DisplayName(),
			Findings:    n,
			Available:   seen && failed[src.Kind()] == nil,
		}
		st.Status = st.StatusLabel()
		out = append(out, st)
	}
	return out
}
