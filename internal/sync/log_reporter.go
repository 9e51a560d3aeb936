package sync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/threatdesk/threatdesk/internal/connectors/registry"
)

const defaultProgressInterval = 5 * time.Second

type logReporterKey struct {
	source string
	stage  string
}

// LogReporter logs refresh events. Errors and completions are always logged;
// progress for the same source and stage is throttled to one line per
// ProgressInterval, except for stage start and end.
type LogReporter struct {
	Logger           *slog.Logger
	ProgressInterval time.Duration

	mu         sync.Mutex
	lastLogged map[logReporterKey]time.Time
}

func (r *LogReporter) Report(e registry.Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := e.At
	if now.IsZero() {
		now = time.Now()
	}

	attrs := []any{"source", e.Source}
	if e.Stage != "" {
		attrs = append(attrs, "stage", e.Stage)
	}
	if e.Total > 0 {
		attrs = append(attrs, "current", e.Current, "total", e.Total)
	}

	message := e.Message
	if e.Err != nil {
		if message == "" {
			switch {
			case e.Source != "" && e.Stage != "":
				message = e.Source + " " + e.Stage + " failed"
			case e.Source != "":
				message = e.Source + " failed"
			default:
				message = "refresh failed"
			}
		}
		logger.Error(message, append(attrs, "err", e.Err)...)
		return
	}
	if message == "" {
		if !e.Done {
			return
		}
		message = "refresh complete"
	}

	if !r.shouldLog(now, e) {
		return
	}
	logger.Info(message, attrs...)
}

func (r *LogReporter) shouldLog(now time.Time, e registry.Event) bool {
	if e.Done || e.Total <= 1 || e.Current <= 0 || e.Current >= e.Total {
		return true
	}

	interval := r.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastLogged == nil {
		r.lastLogged = make(map[logReporterKey]time.Time)
	}
	key := logReporterKey{source: e.Source, stage: e.Stage}
	if last, ok := r.lastLogged[key]; ok && now.Sub(last) < interval {
		return false
	}
	r.lastLogged[key] = now
	return true
}
