// Package statussync writes acknowledgement decisions back to the source that
// owns a finding.
package statussync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/threatdesk/threatdesk/internal/connectors/registry"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/metrics"
	"github.com/threatdesk/threatdesk/internal/sync"
)

var (
	// ErrNotFound is returned for ids absent from the latest snapshot.
	ErrNotFound = errors.New("finding not found")
	// ErrUnknownSource is returned when no registered source owns the id.
	ErrUnknownSource = errors.New("no source registered for finding")
)

// Refresher is the part of the refresh cycle the syncer depends on.
type Refresher interface {
	Refresh(ctx context.Context) (*sync.Snapshot, error)
	Lookup(id finding.ID) (finding.Finding, bool)
}

type Syncer struct {
	registry  *registry.Registry
	refresher Refresher
}

func New(reg *registry.Registry, refresher Refresher) *Syncer {
	return &Syncer{registry: reg, refresher: refresher}
}

// Toggle flips the status of a finding at its source, then refreshes and
// returns the finding as the sources now report it. The local copy is never
// patched: a failed write leaves everything unchanged.
func (s *Syncer) Toggle(ctx context.Context, id finding.ID) (finding.Finding, error) {
	current, ok := s.refresher.Lookup(id)
	if !ok {
		return finding.Finding{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	src, ok := s.registry.Get(id.Source)
	if !ok {
		return finding.Finding{}, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}

	next := current.Status.Toggle()
	if err := src.UpdateStatus(ctx, id.OriginalID, next); err != nil {
		metrics.StatusTogglesTotal.WithLabelValues(string(id.Source), "failure").Inc()
		slog.ErrorContext(ctx, "status write-back failed", "finding_id", id.String(), "status", next, "err", err)
		return finding.Finding{}, fmt.Errorf("update status of %s: %w", id, err)
	}
	metrics.StatusTogglesTotal.WithLabelValues(string(id.Source), "success").Inc()
	slog.InfoContext(ctx, "status updated", "finding_id", id.String(), "status", next)

	snap, err := s.refresher.Refresh(ctx)
	switch {
	case err == nil, errors.Is(err, sync.ErrNoData):
	case errors.Is(err, sync.ErrStaleRefresh):
		// A newer cycle is publishing; read whatever is current now.
		snap = nil
	default:
		return finding.Finding{}, fmt.Errorf("refresh after status update: %w", err)
	}

	var (
		updated finding.Finding
		found   bool
	)
	if snap != nil {
		updated, found = snap.Lookup(id)
	} else {
		updated, found = s.refresher.Lookup(id)
	}
	if !found {
		return finding.Finding{}, fmt.Errorf("%w after refresh: %s", ErrNotFound, id)
	}
	return updated, nil
}
