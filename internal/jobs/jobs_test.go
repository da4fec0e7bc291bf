package jobs

import (
	"context"
	"testing"
	"time"

	"pagepulse/internal/config"
	"pagepulse/internal/model"
	"pagepulse/internal/store/postdb"
)

type fakeClient struct {
	posts    []model.Post
	counters map[string]model.Counters
	fetches  map[string]int
}

func (f *fakeClient) GetPageInfo(ctx context.Context) (model.Page, error) {
	return model.Page{ID: "page1", Name: "Demo Page", FanCount: 1200, FollowersCount: 1300}, nil
}

func (f *fakeClient) ListPosts(ctx context.Context, since, until time.Time, limit int) ([]model.Post, error) {
	return f.posts, nil
}

func (f *fakeClient) GetPostCounters(ctx context.Context, postID string) (model.Counters, error) {
	if f.fetches == nil {
		f.fetches = map[string]int{}
	}
	f.fetches[postID]++
	return f.counters[postID], nil
}

func testSetup(t *testing.T) (*postdb.DB, *fakeClient, config.Config) {
	t.Helper()
	db, err := postdb.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	now := time.Now().UTC()
	client := &fakeClient{
		posts: []model.Post{
			{ID: "fresh", PageID: "page1", Message: "核電 重啟 公投", CreatedTime: now.Add(-48 * time.Hour), PostType: "status"},
			{ID: "stale", PageID: "page1", Message: "氣候變遷 報告", CreatedTime: now.Add(-90 * 24 * time.Hour), PostType: "status"},
		},
		counters: map[string]model.Counters{
			"fresh": {Reach: 1000, Clicks: 50, Likes: 20, Comments: 10, Shares: 5, ReactionsLike: 20},
			"stale": {Reach: 500, Clicks: 10, Likes: 5, Comments: 2, Shares: 1, ReactionsLike: 5},
		},
	}
	return db, client, config.Default()
}

func TestRunCollectOnceStoresPostsAndSnapshots(t *testing.T) {
	db, client, cfg := testSetup(t)
	ctx := context.Background()

	if err := RunCollectOnce(ctx, db, client, cfg, 30*24*time.Hour); err != nil {
		t.Fatal(err)
	}
	posts, err := db.ListPosts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}
	for _, id := range []string{"fresh", "stale"} {
		snaps, err := db.ListSnapshots(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if len(snaps) != 1 {
			t.Fatalf("snapshots for %s = %d, want 1", id, len(snaps))
		}
	}
	if v, err := db.LoadCursor(ctx, collectCursor); err != nil || v == "" {
		t.Fatalf("cursor not saved: %v %q", err, v)
	}
}

func TestRunCollectOnceSkipsTrackedOutPosts(t *testing.T) {
	db, client, cfg := testSetup(t)
	ctx := context.Background()

	if err := RunCollectOnce(ctx, db, client, cfg, 30*24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := RunCollectOnce(ctx, db, client, cfg, 30*24*time.Hour); err != nil {
		t.Fatal(err)
	}
	// the fresh post is refetched every run, the stale one only until
	// it has its single late snapshot
	if got := client.fetches["fresh"]; got != 2 {
		t.Fatalf("fresh fetches = %d, want 2", got)
	}
	if got := client.fetches["stale"]; got != 1 {
		t.Fatalf("stale fetches = %d, want 1", got)
	}
}

func TestRunAnalyticsOnceDerivesEverything(t *testing.T) {
	db, client, cfg := testSetup(t)
	ctx := context.Background()

	if err := RunCollectOnce(ctx, db, client, cfg, 120*24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := RunAnalyticsOnce(ctx, db, cfg); err != nil {
		t.Fatal(err)
	}

	class, err := db.ListClassifications(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(class) != 2 {
		t.Fatalf("classifications = %d, want 2", len(class))
	}
	if class["fresh"].IssueTopic != "nuclear" {
		t.Fatalf("fresh topic = %q, want nuclear", class["fresh"].IssueTopic)
	}
	if class["fresh"].AdScore <= 0 || class["fresh"].AdRecommendation == "" {
		t.Fatalf("fresh ad potential not set: %+v", class["fresh"])
	}

	latest, err := db.LatestPerformance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	p := latest["fresh"]
	if p.EngagementRate != 3.5 {
		t.Fatalf("fresh engagement rate = %v, want 3.5", p.EngagementRate)
	}
	if p.Tier == "" || p.PercentileRank <= 0 {
		t.Fatalf("tiering missing: %+v", p)
	}

	bms, err := db.ListBenchmarks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(bms) == 0 {
		t.Fatal("no benchmarks written")
	}
	found := false
	for _, b := range bms {
		if b.Type == model.BenchmarkPage && b.Key == "overall" && b.Period == model.PeriodAllTime {
			found = true
			if b.SampleSize != 2 {
				t.Fatalf("overall all_time sample = %d, want 2", b.SampleSize)
			}
		}
	}
	if !found {
		t.Fatal("overall all_time benchmark missing")
	}
}

func TestRunAnalyticsOnceIsRepeatable(t *testing.T) {
	db, client, cfg := testSetup(t)
	ctx := context.Background()

	if err := RunCollectOnce(ctx, db, client, cfg, 120*24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := RunAnalyticsOnce(ctx, db, cfg); err != nil {
		t.Fatal(err)
	}
	first, err := db.ListBenchmarks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := RunAnalyticsOnce(ctx, db, cfg); err != nil {
		t.Fatal(err)
	}
	second, err := db.ListBenchmarks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("benchmark rows changed across runs: %d vs %d", len(first), len(second))
	}
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	db, client, cfg := testSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunLoop(ctx, db, client, cfg, 30*24*time.Hour, time.Hour)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("loop err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}
