package registry

import (
	"context"

	"github.com/threatdesk/threatdesk/internal/finding"
)

// Source is one subsystem that owns findings.
type Source interface {
	// Identity
	Kind() finding.Source
	DisplayName() string

	// Fetch returns the raw payload of the source's read endpoint.
	Fetch(ctx context.Context) ([]byte, error)

	// UpdateStatus writes an acknowledgement decision back to the source.
	UpdateStatus(ctx context.Context, originalID string, status finding.Status) error
}
