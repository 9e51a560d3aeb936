package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	listenerReadHeaderTimeout = 5 * time.Second
	listenerShutdownTimeout   = 5 * time.Second
)

// ReadyFunc reports whether the process has published findings yet.
type ReadyFunc func() bool

// Listener configures the side port that exposes Prometheus collectors and a
// readiness probe.
type Listener struct {
	Addr  string
	Ready ReadyFunc
}

// Enabled reports whether an address is set and not one of the disabling
// keywords.
func (l Listener) Enabled() bool {
	addr := strings.ToLower(strings.TrimSpace(l.Addr))
	switch addr {
	case "", "off", "disabled", "false", "0":
		return false
	}
	return true
}

// Handler serves /metrics and /readyz. Readiness fails with 503 until the
// first refresh has been published.
func (l Listener) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if l.Ready != nil && !l.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("waiting for first refresh\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Start serves the listener until ctx is done. It returns nil values when
// the listener is disabled; the channel receives a bind or serve failure.
func (l Listener) Start(ctx context.Context) (*http.Server, <-chan error) {
	if !l.Enabled() {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	addr := strings.TrimSpace(l.Addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           l.Handler(),
		ReadHeaderTimeout: listenerReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), listenerShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv, errCh
}
