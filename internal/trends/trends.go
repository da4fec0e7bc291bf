package trends

import (
	"context"
	"math"
	"sort"
	"time"

	"pagepulse/internal/model"
	"pagepulse/internal/store/postdb"
	"pagepulse/internal/util"
)

// Point is one observation on a post's growth curve.
type Point struct {
	FetchDate       string
	Likes           int
	Comments        int
	Shares          int
	TotalEngagement int
	Reach           int
	Clicks          int
}

// engagement counts likes, comments, and shares; reactions beyond the
// like counter are tracked separately and excluded here.
func engagement(c model.Counters) int {
	return c.Likes + c.Comments + c.Shares
}

// Lifecycle returns a post's snapshots as growth-curve points, oldest
// first.
func Lifecycle(ctx context.Context, db *postdb.DB, postID string) ([]Point, error) {
	snaps, err := db.ListSnapshots(ctx, postID)
	if err != nil {
		return nil, err
	}
	out := make([]Point, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Point{
			FetchDate:       s.FetchDate,
			Likes:           s.Likes,
			Comments:        s.Comments,
			Shares:          s.Shares,
			TotalEngagement: engagement(s.Counters),
			Reach:           s.Reach,
			Clicks:          s.Clicks,
		})
	}
	return out, nil
}

// Velocity summarises how fast a post is accumulating engagement.
type Velocity struct {
	PostID           string
	SnapshotCount    int
	FirstDate        string
	LastDate         string
	DaysTracked      int
	EngagementGrowth int
	DailyVelocity    float64
	HourlyVelocity   float64
}

// EngagementVelocity computes a post's average engagement gain per day
// and per hour between its first and last snapshot. Fewer than two
// snapshots yields zero velocities.
func EngagementVelocity(ctx context.Context, db *postdb.DB, postID string) (Velocity, error) {
	curve, err := Lifecycle(ctx, db, postID)
	if err != nil {
		return Velocity{}, err
	}
	v := Velocity{PostID: postID, SnapshotCount: len(curve)}
	if len(curve) < 2 {
		return v, nil
	}
	first, last := curve[0], curve[len(curve)-1]
	v.FirstDate = first.FetchDate
	v.LastDate = last.FetchDate
	fd, err := time.Parse("2006-01-02", first.FetchDate)
	if err != nil {
		return v, err
	}
	ld, err := time.Parse("2006-01-02", last.FetchDate)
	if err != nil {
		return v, err
	}
	days := int(ld.Sub(fd).Hours() / 24)
	if days == 0 {
		days = 1
	}
	v.DaysTracked = days
	v.EngagementGrowth = last.TotalEngagement - first.TotalEngagement
	v.DailyVelocity = round2(float64(v.EngagementGrowth) / float64(days))
	v.HourlyVelocity = round2(float64(v.EngagementGrowth) / float64(days*24))
	return v, nil
}

// Growth is per-post engagement growth over a recent window.
type Growth struct {
	PostID           string
	Message          string
	FirstDate        string
	LastDate         string
	FirstEngagement  int
	LastEngagement   int
	EngagementGrowth int
	GrowthRatePct    float64
}

// GrowthRates compares first and last snapshots inside the last N days
// for every post, sorted by growth percentage descending. Posts whose
// window holds a single snapshot date are skipped; a zero first
// snapshot reports 0%.
func GrowthRates(ctx context.Context, db *postdb.DB, now time.Time, days, limit int) ([]Growth, error) {
	posts, err := db.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := now.UTC().AddDate(0, 0, -days).Format("2006-01-02")
	var out []Growth
	for _, p := range posts {
		snaps, err := db.ListSnapshots(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		var window []model.Snapshot
		for _, s := range snaps {
			if s.FetchDate >= cutoff {
				window = append(window, s)
			}
		}
		if len(window) < 2 {
			continue
		}
		first, last := window[0], window[len(window)-1]
		if first.FetchDate == last.FetchDate {
			continue
		}
		g := Growth{
			PostID:          p.ID,
			Message:         util.Truncate(p.Message, 100),
			FirstDate:       first.FetchDate,
			LastDate:        last.FetchDate,
			FirstEngagement: engagement(first.Counters),
			LastEngagement:  engagement(last.Counters),
		}
		g.EngagementGrowth = g.LastEngagement - g.FirstEngagement
		if g.FirstEngagement > 0 {
			g.GrowthRatePct = round2(float64(g.EngagementGrowth) * 100 / float64(g.FirstEngagement))
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GrowthRatePct > out[j].GrowthRatePct })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TrendingPost is a recent post ranked by engagement accumulated per
// hour since publish.
type TrendingPost struct {
	PostID            string
	MessagePreview    string
	CreatedTime       time.Time
	HoursSincePost    float64
	CurrentEngagement int
	Reach             int
	EngagementPerHour float64
	EngagementRate    float64
}

// Trending returns posts published within the last N hours ordered by
// engagement per hour, the "taking off" candidates worth boosting.
func Trending(ctx context.Context, db *postdb.DB, now time.Time, hours, limit int) ([]TrendingPost, error) {
	posts, err := db.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	maxes, err := db.MaxCounters(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := now.UTC().Add(-time.Duration(hours) * time.Hour)
	var out []TrendingPost
	for _, p := range posts {
		if p.CreatedTime.Before(cutoff) {
			continue
		}
		c, ok := maxes[p.ID]
		if !ok {
			continue
		}
		tp := TrendingPost{
			PostID:            p.ID,
			MessagePreview:    util.Truncate(p.Message, 100),
			CreatedTime:       p.CreatedTime,
			CurrentEngagement: engagement(c),
			Reach:             c.Reach,
		}
		h := now.Sub(p.CreatedTime).Hours()
		tp.HoursSincePost = math.Round(h*10) / 10
		if h > 0 {
			tp.EngagementPerHour = round2(float64(tp.CurrentEngagement) / h)
		} else {
			tp.EngagementPerHour = float64(tp.CurrentEngagement)
		}
		if c.Reach > 0 {
			tp.EngagementRate = round2(float64(tp.CurrentEngagement) * 100 / float64(c.Reach))
		}
		out = append(out, tp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EngagementPerHour > out[j].EngagementPerHour })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
