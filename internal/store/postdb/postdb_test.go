package postdb

import (
	"context"
	"testing"
	"time"

	"pagepulse/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertPostBackfillOnly(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	created := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	p := model.Post{ID: "p1", PageID: "pg", CreatedTime: created, Message: "", Permalink: ""}
	if err := db.UpsertPost(ctx, p); err != nil {
		t.Fatal(err)
	}
	// backfill empty fields
	p.Message = "hello"
	p.Permalink = "https://fb.com/p1"
	if err := db.UpsertPost(ctx, p); err != nil {
		t.Fatal(err)
	}
	// a later differing message must not overwrite
	p.Message = "changed"
	if err := db.UpsertPost(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetPost(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != "hello" {
		t.Fatalf("message mutated: %q", got.Message)
	}
	if !got.CreatedTime.Equal(created) {
		t.Fatalf("created time: %v", got.CreatedTime)
	}
}

func TestSnapshotUpsertAndMaxCounters(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	_ = db.UpsertPost(ctx, model.Post{ID: "p1", PageID: "pg", CreatedTime: time.Now().UTC()})
	s1 := model.Snapshot{PostID: "p1", FetchDate: "2026-01-10",
		Counters: model.Counters{Reach: 100, Likes: 5, Comments: 2, Shares: 1, ReactionsLike: 5}}
	s2 := model.Snapshot{PostID: "p1", FetchDate: "2026-01-11",
		Counters: model.Counters{Reach: 90, Likes: 8, Comments: 4, Shares: 3, ReactionsLike: 8}}
	if err := db.UpsertSnapshot(ctx, s1); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertSnapshot(ctx, s2); err != nil {
		t.Fatal(err)
	}
	// retried upsert of same day must not duplicate
	if err := db.UpsertSnapshot(ctx, s2); err != nil {
		t.Fatal(err)
	}
	snaps, err := db.ListSnapshots(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("snapshots: got %d want 2", len(snaps))
	}
	maxes, err := db.MaxCounters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	c := maxes["p1"]
	// max per counter: reach from day 1, likes from day 2
	if c.Reach != 100 || c.Likes != 8 || c.Comments != 4 || c.Shares != 3 {
		t.Fatalf("max counters: %+v", c)
	}
}

func TestClassificationRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	_ = db.UpsertPost(ctx, model.Post{ID: "p1", PageID: "pg", CreatedTime: time.Now().UTC()})
	c := model.Classification{
		PostID: "p1", MediaType: "text", HasLink: true, HashtagCount: 2, HasHashtag: true,
		MessageLength: 120, LengthTier: "medium", WordCount: 30,
		FormatType: "report", IssueTopic: "nuclear", HasCTA: true, CTAType: "sign_up",
		HourOfDay: 10, DayOfWeek: 0, WeekOfYear: 2, Month: 1, TimeSlot: "morning",
	}
	if err := db.UpsertClassification(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateAdPotential(ctx, "p1", 72.5, model.RecommendYes); err != nil {
		t.Fatal(err)
	}
	// reclassification must keep the ad score columns
	if err := db.UpsertClassification(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetClassification(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.IssueTopic != "nuclear" || got.TimeSlot != "morning" {
		t.Fatalf("round trip: %+v", got)
	}
	if got.AdScore != 72.5 || got.AdRecommendation != model.RecommendYes {
		t.Fatalf("ad columns lost on reclassification: %+v", got)
	}
}

func TestPostsWithoutClassification(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	_ = db.UpsertPost(ctx, model.Post{ID: "a", PageID: "pg", CreatedTime: time.Now().UTC()})
	_ = db.UpsertPost(ctx, model.Post{ID: "b", PageID: "pg", CreatedTime: time.Now().UTC()})
	_ = db.UpsertClassification(ctx, model.Classification{PostID: "a"})
	posts, err := db.PostsWithoutClassification(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].ID != "b" {
		t.Fatalf("unclassified: %+v", posts)
	}
}

func TestPerformanceAndBenchmarks(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	p := model.Performance{PostID: "p1", SnapshotDate: "2026-01-10", EngagementRate: 3.5, Tier: model.TierHigh, PercentileRank: 80}
	if err := db.UpsertPerformance(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.EngagementRate = 4.0
	if err := db.UpsertPerformance(ctx, p); err != nil { // replace same key
		t.Fatal(err)
	}
	p2 := p
	p2.SnapshotDate = "2026-01-11"
	p2.EngagementRate = 4.5
	if err := db.UpsertPerformance(ctx, p2); err != nil {
		t.Fatal(err)
	}
	all, err := db.ListPerformance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("performance rows: got %d want 2", len(all))
	}
	latest, err := db.LatestPerformance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest["p1"].EngagementRate != 4.5 {
		t.Fatalf("latest: %+v", latest["p1"])
	}

	rows := []model.Benchmark{
		{Type: model.BenchmarkPage, Key: "overall", Period: model.Period7d, AvgER: 3.1, SampleSize: 4},
		{Type: model.BenchmarkTopic, Key: "nuclear", Period: model.PeriodAllTime, AvgER: 4.2, SampleSize: 2},
	}
	if err := db.ReplaceBenchmarks(ctx, rows); err != nil {
		t.Fatal(err)
	}
	rows[0].AvgER = 3.3
	if err := db.ReplaceBenchmarks(ctx, rows); err != nil { // idempotent replace
		t.Fatal(err)
	}
	got, err := db.ListBenchmarks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("benchmarks: got %d want 2", len(got))
	}
	for _, b := range got {
		if b.Type == model.BenchmarkPage && b.AvgER != 3.3 {
			t.Fatalf("replace did not update: %+v", b)
		}
	}
}

func TestTopAdCandidates(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	for i, score := range []float64{82, 55, 40} {
		id := string(rune('a' + i))
		_ = db.UpsertPost(ctx, model.Post{ID: id, PageID: "pg", CreatedTime: time.Now().UTC(), Permalink: "https://fb.com/" + id})
		_ = db.UpsertClassification(ctx, model.Classification{PostID: id, IssueTopic: "climate"})
		_ = db.UpdateAdPotential(ctx, id, score, "x")
	}
	top, err := db.TopAdCandidates(ctx, 10, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("candidates: got %d want 2", len(top))
	}
	if top[0].PostID != "a" || top[0].Score != 82 {
		t.Fatalf("order: %+v", top)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	v, err := db.LoadCursor(ctx, "collect:since")
	if err != nil || v != "" {
		t.Fatalf("empty cursor: %q %v", v, err)
	}
	if err := db.SaveCursor(ctx, "collect:since", "2026-01-01"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCursor(ctx, "collect:since", "2026-02-01"); err != nil {
		t.Fatal(err)
	}
	v, err = db.LoadCursor(ctx, "collect:since")
	if err != nil || v != "2026-02-01" {
		t.Fatalf("cursor: %q %v", v, err)
	}
}
