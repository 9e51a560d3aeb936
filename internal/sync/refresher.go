package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/threatdesk/threatdesk/internal/aggregate"
	"github.com/threatdesk/threatdesk/internal/connectors/registry"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/metrics"
	"github.com/threatdesk/threatdesk/internal/normalize"
	"golang.org/x/sync/errgroup"
)

// Snapshot is one published result of a refresh cycle. It is never modified
// after publication; callers must not mutate Findings.
type Snapshot struct {
	Seq          uint64
	Findings     []finding.Finding
	RefreshedAt  time.Time
	SourceErrors map[finding.Source]error
	// Counts holds the number of normalized findings per source before
	// de-duplication.
	Counts map[finding.Source]int
	Stats  aggregate.Stats

	index map[finding.ID]int
}

// Lookup returns the finding with the given id.
func (s *Snapshot) Lookup(id finding.ID) (finding.Finding, bool) {
	if s == nil {
		return finding.Finding{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return finding.Finding{}, false
	}
	return s.Findings[i], true
}

type sourceResult struct {
	findings []finding.Finding
	err      error
}

// Refresher reads every registered source, merges the results and publishes
// the latest snapshot. Overlapping cycles are allowed; only the most recently
// started one may publish.
type Refresher struct {
	registry *registry.Registry
	reporter registry.Reporter
	reportMu sync.Mutex
	now      func() time.Time

	seq atomic.Uint64

	mu      sync.RWMutex
	current *Snapshot
}

func NewRefresher(reg *registry.Registry) *Refresher {
	return &Refresher{registry: reg, now: time.Now}
}

// SetReporter configures a progress reporter for refresh events.
func (r *Refresher) SetReporter(reporter registry.Reporter) {
	if r == nil {
		return
	}
	r.reporter = reporter
}

// report serializes events so reporters need not be safe for concurrent use.
func (r *Refresher) report(e registry.Event) {
	if r.reporter == nil {
		return
	}
	if e.At.IsZero() {
		e.At = r.now()
	}
	r.reportMu.Lock()
	defer r.reportMu.Unlock()
	r.reporter.Report(e)
}

// RunOnce runs one refresh cycle.
func (r *Refresher) RunOnce(ctx context.Context) error {
	_, err := r.Refresh(ctx)
	return err
}

// Refresh runs one cycle and returns the snapshot it published. A cycle that
// was overtaken by a newer one returns ErrStaleRefresh and publishes nothing.
// ErrNoData is returned, together with any source errors, when no source
// produced a finding; the empty snapshot is still published.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	if r == nil || r.registry == nil {
		return nil, errors.New("refresher is not configured")
	}
	sources := r.registry.All()
	if len(sources) == 0 {
		return nil, ErrNoEnabledSources
	}

	seq := r.seq.Add(1)
	start := r.now()
	logger := slog.Default().With("seq", seq)

	results := make([]sourceResult, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			results[i] = r.readSource(ctx, logger, src)
			return nil
		})
	}
	_ = g.Wait()

	snap := &Snapshot{
		Seq:          seq,
		SourceErrors: make(map[finding.Source]error),
		Counts:       make(map[finding.Source]int, len(sources)),
	}
	lists := make([][]finding.Finding, 0, len(sources))
	var errs []error
	for i, src := range sources {
		res := results[i]
		snap.Counts[src.Kind()] = len(res.findings)
		if res.err != nil {
			snap.SourceErrors[src.Kind()] = res.err
			errs = append(errs, res.err)
		}
		lists = append(lists, res.findings)
	}

	snap.Findings, snap.Stats = aggregate.AggregateWithStats(aggregate.Options{
		OnAmbiguous: func(c aggregate.Collision) {
			logger.WarnContext(ctx, "ambiguous duplicate finding",
				"finding_id", c.ID.String(),
				"kept_origin", c.Kept,
				"replaced_origin", c.Replaced,
			)
		},
	}, lists...)
	snap.index = make(map[finding.ID]int, len(snap.Findings))
	for i, f := range snap.Findings {
		snap.index[f.ID] = i
	}
	snap.RefreshedAt = r.now()

	if !r.publish(snap) {
		metrics.RefreshRunsTotal.WithLabelValues("stale").Inc()
		logger.InfoContext(ctx, "discarding superseded refresh")
		return nil, ErrStaleRefresh
	}

	metrics.RefreshDuration.Observe(snap.RefreshedAt.Sub(start).Seconds())
	metrics.DuplicateFindingsTotal.WithLabelValues("duplicate").Add(float64(snap.Stats.Duplicates))
	metrics.DuplicateFindingsTotal.WithLabelValues("ambiguous").Add(float64(snap.Stats.Ambiguous))
	perSource := make(map[finding.Source]int, len(sources))
	for _, f := range snap.Findings {
		perSource[f.Source]++
	}
	for _, src := range sources {
		metrics.FindingsTotal.WithLabelValues(string(src.Kind())).Set(float64(perSource[src.Kind()]))
	}

	var err error
	status := "success"
	switch {
	case len(snap.Findings) == 0:
		status = "no_data"
		err = errors.Join(append([]error{ErrNoData}, errs...)...)
	case len(errs) > 0:
		status = "partial"
	}
	metrics.RefreshRunsTotal.WithLabelValues(status).Inc()
	if err == nil {
		metrics.RefreshLastSuccessTimestamp.Set(float64(snap.RefreshedAt.Unix()))
	}

	r.report(registry.Event{
		Source:  "refresh",
		Stage:   "done",
		Done:    true,
		Message: fmt.Sprintf("refresh complete: findings=%d duplicates=%d failed_sources=%d", len(snap.Findings), snap.Stats.Duplicates, len(errs)),
		Err:     err,
	})
	return snap, err
}

func (r *Refresher) readSource(ctx context.Context, logger *slog.Logger, src registry.Source) sourceResult {
	kind := string(src.Kind())
	r.report(registry.Event{Source: kind, Stage: "fetch", Current: 0, Total: 1, Message: "reading " + src.DisplayName()})

	start := time.Now()
	payload, err := src.Fetch(ctx)
	metrics.SourceFetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(kind, "failure").Inc()
		logger.ErrorContext(ctx, "source read failed", "source", kind, "err", err)
		r.report(registry.Event{Source: kind, Stage: "fetch", Current: 1, Total: 1, Err: err})
		return sourceResult{err: fmt.Errorf("%s: %w", kind, err)}
	}
	metrics.SourceFetchesTotal.WithLabelValues(kind, "success").Inc()

	res := normalize.Payload(src.Kind(), payload)
	if res.Dropped > 0 {
		metrics.SourceRecordsDropped.WithLabelValues(kind).Add(float64(res.Dropped))
		logger.WarnContext(ctx, "dropped unusable records", "source", kind, "dropped", res.Dropped)
	}
	r.report(registry.Event{
		Source:  kind,
		Stage:   "fetch",
		Current: 1,
		Total:   1,
		Message: fmt.Sprintf("%s: %d findings", src.DisplayName(), len(res.Findings)),
	})
	return sourceResult{findings: res.Findings}
}

// publish installs snap if its sequence number is still the latest issued.
func (r *Refresher) publish(snap *Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.Seq != r.seq.Load() {
		return false
	}
	if r.current != nil && r.current.Seq >= snap.Seq {
		return false
	}
	r.current = snap
	return true
}

// Snapshot returns the latest published snapshot, or nil before the first
// cycle completes.
func (r *Refresher) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Lookup finds a finding in the latest snapshot.
func (r *Refresher) Lookup(id finding.ID) (finding.Finding, bool) {
	return r.Snapshot().Lookup(id)
}
