package registry

import (
	"fmt"

	"github.com/threatdesk/threatdesk/internal/finding"
)

// Registry is the central registry for all finding sources.
type Registry struct {
	sources map[finding.Source]Source
	order   []finding.Source // Feed order
}

// NewRegistry creates a new source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[finding.Source]Source),
		order:   make([]finding.Source, 0),
	}
}

// Register adds a source to the registry.
func (r *Registry) Register(src Source) error {
	if src == nil {
		return fmt.Errorf("source cannot be nil")
	}
	kind := src.Kind()
	if _, err := finding.ParseSource(string(kind)); err != nil {
		return err
	}
	if _, exists := r.sources[kind]; exists {
		return fmt.Errorf("source %q already registered", kind)
	}
	r.sources[kind] = src
	r.order = append(r.order, kind)
	return nil
}

// Get retrieves a source by kind.
func (r *Registry) Get(kind finding.Source) (Source, bool) {
	src, ok := r.sources[kind]
	return src, ok
}

// All returns all registered sources in order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, kind := range r.order {
		out = append(out, r.sources[kind])
	}
	return out
}
