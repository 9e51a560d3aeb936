package sync

import (
	"context"
	"errors"
)

// Runner executes a single refresh pass.
type Runner interface {
	RunOnce(context.Context) error
}

var ErrNoEnabledSources = errors.New("no finding sources are configured")

// ErrNoData is returned when a refresh cycle yields no findings at all.
var ErrNoData = errors.New("no findings available from any source")

// ErrStaleRefresh is returned by a cycle that finished after a newer cycle
// had started. Its result is discarded.
var ErrStaleRefresh = errors.New("refresh superseded by a newer cycle")

// ErrRefreshQueued is returned when a refresh request is accepted but will be
// processed asynchronously by the server.
var ErrRefreshQueued = errors.New("refresh queued")
