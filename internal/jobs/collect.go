package jobs

import (
	"context"
	"time"

	"pagepulse/internal/config"
	"pagepulse/internal/fbclient"
	"pagepulse/internal/logging"
	"pagepulse/internal/metrics"
	"pagepulse/internal/model"
	"pagepulse/internal/store/postdb"
)

const collectCursor = "collect:last_ts"

// RunCollectOnce syncs page info, lists posts published since the last
// cursor (or now-horizon), and upserts a counter snapshot for every
// post still inside the tracking window. Posts past the window get one
// late snapshot if they never received any.
func RunCollectOnce(ctx context.Context, db *postdb.DB, client fbclient.Client, cfg config.Config, horizon time.Duration) error {
	now := time.Now().UTC()
	since := now.Add(-horizon)
	if v, err := db.LoadCursor(ctx, collectCursor); err == nil && v != "" {
		if ts, err2 := time.Parse(time.RFC3339Nano, v); err2 == nil {
			since = ts
		}
	}
	start := time.Now()
	metrics.CollectRuns.Inc()

	page, err := client.GetPageInfo(ctx)
	if err != nil {
		metrics.CollectErrors.Inc()
		return err
	}
	page.LastSyncedAt = now
	if err := db.UpsertPage(ctx, page); err != nil {
		metrics.CollectErrors.Inc()
		return err
	}

	posts, err := client.ListPosts(ctx, since, now, 100)
	if err != nil {
		metrics.CollectErrors.Inc()
		return err
	}
	for _, p := range posts {
		if err := db.UpsertPost(ctx, p); err != nil {
			metrics.CollectErrors.Inc()
			return err
		}
	}

	fetchDate := localDate(now, cfg.Analytics.UTCOffsetHours)
	trackWindow := time.Duration(cfg.Analytics.TrackDays) * 24 * time.Hour
	tracked, err := db.ListPosts(ctx)
	if err != nil {
		metrics.CollectErrors.Inc()
		return err
	}
	snapshots := 0
	for _, p := range tracked {
		if now.Sub(p.CreatedTime) > trackWindow {
			have, err := db.HasSnapshot(ctx, p.ID)
			if err != nil {
				metrics.CollectErrors.Inc()
				return err
			}
			if have {
				continue
			}
		}
		c, err := client.GetPostCounters(ctx, p.ID)
		if err != nil {
			// one post failing should not abort the whole run
			metrics.CollectErrors.Inc()
			logging.Warn("snapshot_fetch_error", map[string]any{"post": p.ID, "error": err.Error()})
			continue
		}
		if err := db.UpsertSnapshot(ctx, model.Snapshot{PostID: p.ID, FetchDate: fetchDate, Counters: c}); err != nil {
			metrics.CollectErrors.Inc()
			return err
		}
		snapshots++
	}

	_ = db.SaveCursor(ctx, collectCursor, now.Format(time.RFC3339Nano))
	logging.Info("collect_once", map[string]any{"since": since, "posts": len(posts), "snapshots": snapshots})
	metrics.ObserveRunDuration(start)
	return nil
}

// localDate formats t as a YYYY-MM-DD day in the page's local zone.
func localDate(t time.Time, utcOffsetHours int) string {
	return t.UTC().Add(time.Duration(utcOffsetHours) * time.Hour).Format("2006-01-02")
}
