package cli

import (
	"context"
	"time"
)

const pingTimeout = 3 * time.Second

// StartOnlineStatusWatcher pings the mirror every interval and feeds the
// result into the session. While online it also drains any queued changes.
// It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) tick(ctx context.Context) {
	if !a.checkOnline(ctx) {
		return
	}
	n, err := a.storage.QueueStatus(ctx)
	if err != nil {
		a.log.Warn(ctx, "read queue status", "error", err)
		return
	}
	if n.Pending == 0 || n.Draining {
		return
	}
	if _, err := a.storage.Drain(ctx); err != nil {
		a.log.Warn(ctx, "background drain", "error", err)
	}
}

// checkOnline pings the mirror and records the result in the session. An
// offline to online change drains the queue through the session observer.
func (a *App) checkOnline(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.mirror.Ping(pctx)
	cancel()

	online := err == nil
	if a.session.SetOnline(online) {
		if online {
			a.log.Info(ctx, "switched to online mode")
		} else {
			a.log.Info(ctx, "switched to offline mode", "error", err)
		}
	}
	return online
}
