package report

import (
	"context"
	"testing"
	"time"

	"pagepulse/internal/model"
	"pagepulse/internal/store/postdb"
)

func seed(t *testing.T) *postdb.DB {
	t.Helper()
	db, err := postdb.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	day := func(d int, hour int) time.Time {
		return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
	}
	posts := []struct {
		post  model.Post
		max   model.Counters
		perf  model.Performance
		class *model.Classification
	}{
		{
			post:  model.Post{ID: "p1", PageID: "pg", Message: "nuclear post", CreatedTime: day(2, 9)},
			max:   model.Counters{Likes: 40, Comments: 10, Shares: 10, Reach: 1000, Clicks: 30},
			perf:  model.Performance{PostID: "p1", SnapshotDate: "2026-03-05", EngagementRate: 6, ClickThroughRate: 3, ShareRate: 1, CommentRate: 1, Tier: model.TierViral},
			class: &model.Classification{PostID: "p1", IssueTopic: "nuclear", TimeSlot: "morning", DayOfWeek: 0},
		},
		{
			post:  model.Post{ID: "p2", PageID: "pg", Message: "another nuclear post", CreatedTime: day(2, 10)},
			max:   model.Counters{Likes: 20, Comments: 5, Shares: 5, Reach: 1000, Clicks: 10},
			perf:  model.Performance{PostID: "p2", SnapshotDate: "2026-03-05", EngagementRate: 3, ClickThroughRate: 1, ShareRate: 0.5, CommentRate: 0.5, Tier: model.TierAverage},
			class: &model.Classification{PostID: "p2", IssueTopic: "nuclear", TimeSlot: "morning", DayOfWeek: 0},
		},
		{
			post: model.Post{ID: "p3", PageID: "pg", Message: "mystery post", CreatedTime: day(9, 20)},
			max:  model.Counters{Likes: 10, Comments: 2, Shares: 0, Reach: 500, Clicks: 5},
			perf: model.Performance{PostID: "p3", SnapshotDate: "2026-03-10", EngagementRate: 2.4, ClickThroughRate: 1, ShareRate: 0, CommentRate: 0.4, Tier: model.TierLow},
		},
	}
	for _, p := range posts {
		if err := db.UpsertPost(ctx, p.post); err != nil {
			t.Fatal(err)
		}
		snap := model.Snapshot{PostID: p.post.ID, FetchDate: p.perf.SnapshotDate, Counters: p.max}
		if err := db.UpsertSnapshot(ctx, snap); err != nil {
			t.Fatal(err)
		}
		if err := db.UpsertPerformance(ctx, p.perf); err != nil {
			t.Fatal(err)
		}
		if p.class != nil {
			if err := db.UpsertClassification(ctx, *p.class); err != nil {
				t.Fatal(err)
			}
		}
	}
	return db
}

func TestPeriodSummaryDaily(t *testing.T) {
	db := seed(t)
	rows, err := PeriodSummary(context.Background(), db, "2026-03-01", "2026-03-31", Daily)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("buckets = %d, want 2", len(rows))
	}
	// newest first
	if rows[0].Period != "2026-03-09" || rows[1].Period != "2026-03-02" {
		t.Fatalf("bucket order: %q, %q", rows[0].Period, rows[1].Period)
	}
	d2 := rows[1]
	if d2.PostCount != 2 || d2.TotalEngagement != 90 || d2.TotalReach != 2000 {
		t.Fatalf("march 2 bucket wrong: %+v", d2)
	}
	if d2.AvgEngagementRate != 4.5 {
		t.Fatalf("avg ER = %v, want 4.5", d2.AvgEngagementRate)
	}
	if d2.ViralCount != 1 || d2.AverageCount != 1 || d2.LowCount != 0 {
		t.Fatalf("tier histogram wrong: %+v", d2)
	}
}

func TestPeriodSummaryMonthlyCollapses(t *testing.T) {
	db := seed(t)
	rows, err := PeriodSummary(context.Background(), db, "2026-03-01", "2026-03-31", Monthly)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Period != "2026-03" || rows[0].PostCount != 3 {
		t.Fatalf("monthly rollup wrong: %+v", rows)
	}
}

func TestPeriodSummaryWindowFilter(t *testing.T) {
	db := seed(t)
	rows, err := PeriodSummary(context.Background(), db, "2026-03-05", "2026-03-31", Daily)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Period != "2026-03-09" {
		t.Fatalf("window filter wrong: %+v", rows)
	}
}

func TestTopicPerformanceUnclassifiedBucket(t *testing.T) {
	db := seed(t)
	rows, err := TopicPerformance(context.Background(), db, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("topic rows = %d, want 2", len(rows))
	}
	if rows[0].Topic != "nuclear" || rows[0].PostCount != 2 {
		t.Fatalf("top topic wrong: %+v", rows[0])
	}
	if rows[0].AvgEngagementRate != 4.5 || rows[0].ViralCount != 1 {
		t.Fatalf("nuclear aggregates wrong: %+v", rows[0])
	}
	if rows[1].Topic != "unclassified" || rows[1].PostCount != 1 {
		t.Fatalf("unclassified bucket wrong: %+v", rows[1])
	}
}

func TestTimeSlotPerformanceDropsSparseCells(t *testing.T) {
	db := seed(t)
	rows, err := TimeSlotPerformance(context.Background(), db, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("slot rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r.TimeSlot != "morning" || r.DayOfWeek != "Mon" || r.PostCount != 2 {
		t.Fatalf("slot cell wrong: %+v", r)
	}
}

func TestTopPostsFilters(t *testing.T) {
	db := seed(t)
	all, err := TopPosts(context.Background(), db, "2026-03-01", "2026-03-31", 10, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].PostID != "p1" {
		t.Fatalf("unfiltered top posts wrong: %+v", all)
	}
	nuclear, err := TopPosts(context.Background(), db, "2026-03-01", "2026-03-31", 10, "nuclear", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(nuclear) != 2 {
		t.Fatalf("topic filter rows = %d, want 2", len(nuclear))
	}
	limited, err := TopPosts(context.Background(), db, "2026-03-01", "2026-03-31", 1, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].PostID != "p1" {
		t.Fatalf("limit wrong: %+v", limited)
	}
}
