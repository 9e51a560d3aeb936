package sync

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RefreshNotifyChannel is the Postgres NOTIFY channel used to ask a running
// server for an immediate refresh.
const RefreshNotifyChannel = "threatdesk_refresh_requested"

type notifier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RefreshSignalRunner asks the serving process to refresh instead of
// refreshing in the calling process.
type RefreshSignalRunner struct {
	db notifier
}

func NewRefreshSignalRunner(pool *pgxpool.Pool) Runner {
	if pool == nil {
		return &RefreshSignalRunner{}
	}
	return &RefreshSignalRunner{db: pool}
}

func (r *RefreshSignalRunner) RunOnce(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("refresh signal runner is not configured")
	}
	if _, err := r.db.Exec(ctx, "SELECT pg_notify($1, '')", RefreshNotifyChannel); err != nil {
		return err
	}
	return ErrRefreshQueued
}

// ListenForRefreshRequests forwards notifications to out until ctx ends.
// Requests arriving while one is already pending are coalesced.
func ListenForRefreshRequests(ctx context.Context, pool *pgxpool.Pool, out chan<- struct{}) error {
	if pool == nil {
		return errors.New("refresh pool is nil")
	}
	if out == nil {
		return errors.New("refresh signal channel is nil")
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+RefreshNotifyChannel); err != nil {
		return err
	}

	for {
		_, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		enqueueRefresh(out)
	}
}

func enqueueRefresh(out chan<- struct{}) bool {
	select {
	case out <- struct{}{}:
		return true
	default:
		return false
	}
}
