package jobs

import (
	"context"
	"time"

	"pagepulse/internal/config"
	"pagepulse/internal/fbclient"
	"pagepulse/internal/logging"
	"pagepulse/internal/store/postdb"
)

// RunLoop runs collect followed by analytics on a ticker until ctx is
// cancelled. The first round runs immediately.
func RunLoop(ctx context.Context, db *postdb.DB, client fbclient.Client, cfg config.Config, horizon, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	runRound(ctx, db, client, cfg, horizon)
	for {
		select {
		case <-ctx.Done():
			logging.Info("loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			runRound(ctx, db, client, cfg, horizon)
		}
	}
}

func runRound(ctx context.Context, db *postdb.DB, client fbclient.Client, cfg config.Config, horizon time.Duration) {
	if err := RunCollectOnce(ctx, db, client, cfg, horizon); err != nil {
		logging.Error("collect_once_error", map[string]any{"error": err.Error()})
		return
	}
	if err := RunAnalyticsOnce(ctx, db, cfg); err != nil {
		logging.Error("analytics_once_error", map[string]any{"error": err.Error()})
	}
}
