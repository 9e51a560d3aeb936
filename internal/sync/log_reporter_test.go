package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/threatdesk/threatdesk/internal/connectors/registry"
)

type countingHandler struct {
	mu    sync.Mutex
	count int
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(context.Context, slog.Record) error {
	h.mu.Lock()
	h.count++
	h.mu.Unlock()
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func (h *countingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func TestLogReporterThrottlesProgress(t *testing.T) {
	t.Parallel()

	handler := &countingHandler{}
	reporter := &LogReporter{Logger: slog.New(handler), ProgressInterval: time.Hour}
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	const total = 100
	reporter.Report(registry.Event{Source: "vulnerability-scan", Stage: "fetch", Current: 0, Total: total, Message: "reading", At: at})
	for i := int64(1); i < total; i++ {
		reporter.Report(registry.Event{
			Source:  "vulnerability-scan",
			Stage:   "fetch",
			Current: i,
			Total:   total,
			Message: fmt.Sprintf("records %d/%d", i, total),
			At:      at,
		})
	}
	reporter.Report(registry.Event{Source: "vulnerability-scan", Stage: "fetch", Current: total, Total: total, Message: "done", At: at})

	// start, first progress line, end
	if got := handler.Count(); got != 3 {
		t.Fatalf("expected 3 logs, got %d", got)
	}
}

func TestLogReporterAlwaysLogsErrors(t *testing.T) {
	t.Parallel()

	handler := &countingHandler{}
	reporter := &LogReporter{Logger: slog.New(handler)}
	reporter.Report(registry.Event{Source: "threat-detection", Stage: "fetch", Err: errors.New("boom")})
	reporter.Report(registry.Event{Source: "threat-detection", Stage: "fetch", Err: errors.New("boom")})

	if got := handler.Count(); got != 2 {
		t.Fatalf("expected 2 logs, got %d", got)
	}
}

func TestLogReporterSkipsEmptyProgress(t *testing.T) {
	t.Parallel()

	handler := &countingHandler{}
	reporter := &LogReporter{Logger: slog.New(handler)}
	reporter.Report(registry.Event{Source: "refresh"})
	reporter.Report(registry.Event{Source: "refresh", Done: true})

	if got := handler.Count(); got != 1 {
		t.Fatalf("expected 1 log, got %d", got)
	}
}
