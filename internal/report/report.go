package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"pagepulse/internal/model"
	"pagepulse/internal/store/postdb"
	"pagepulse/internal/util"
)

// Granularity selects how period summaries bucket posts.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Row is one bucket of a period summary.
type Row struct {
	Period    string
	PostCount int

	TotalLikes      int
	TotalComments   int
	TotalShares     int
	TotalEngagement int
	TotalReach      int
	TotalClicks     int

	AvgEngagementRate float64
	AvgClickRate      float64
	AvgShareRate      float64
	AvgCommentRate    float64

	ViralCount   int
	HighCount    int
	AverageCount int
	LowCount     int
}

type postData struct {
	post  model.Post
	max   model.Counters
	perf  model.Performance
	class model.Classification
	hasC  bool
}

func load(ctx context.Context, db *postdb.DB, start, end string) ([]postData, error) {
	posts, err := db.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	maxes, err := db.MaxCounters(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := db.LatestPerformance(ctx)
	if err != nil {
		return nil, err
	}
	class, err := db.ListClassifications(ctx)
	if err != nil {
		return nil, err
	}
	var out []postData
	for _, p := range posts {
		day := p.CreatedTime.UTC().Format("2006-01-02")
		if day < start || day > end {
			continue
		}
		perf, ok := latest[p.ID]
		if !ok {
			continue
		}
		c, hasC := class[p.ID]
		out = append(out, postData{post: p, max: maxes[p.ID], perf: perf, class: c, hasC: hasC})
	}
	return out, nil
}

func periodKey(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case Weekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case Monthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// PeriodSummary groups posts published between start and end
// (YYYY-MM-DD, inclusive) into daily, weekly, or monthly buckets with
// engagement totals, average KPIs, and a tier histogram. Buckets come
// back newest first.
func PeriodSummary(ctx context.Context, db *postdb.DB, start, end string, g Granularity) ([]Row, error) {
	data, err := load(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	buckets := map[string]*Row{}
	sums := map[string]*[4]float64{}
	var keys []string
	for _, d := range data {
		key := periodKey(d.post.CreatedTime, g)
		r, ok := buckets[key]
		if !ok {
			r = &Row{Period: key}
			buckets[key] = r
			sums[key] = &[4]float64{}
			keys = append(keys, key)
		}
		r.PostCount++
		r.TotalLikes += d.max.Likes
		r.TotalComments += d.max.Comments
		r.TotalShares += d.max.Shares
		r.TotalEngagement += d.max.Likes + d.max.Comments + d.max.Shares
		r.TotalReach += d.max.Reach
		r.TotalClicks += d.max.Clicks
		s := sums[key]
		s[0] += d.perf.EngagementRate
		s[1] += d.perf.ClickThroughRate
		s[2] += d.perf.ShareRate
		s[3] += d.perf.CommentRate
		switch d.perf.Tier {
		case model.TierViral:
			r.ViralCount++
		case model.TierHigh:
			r.HighCount++
		case model.TierAverage:
			r.AverageCount++
		case model.TierLow:
			r.LowCount++
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	out := make([]Row, 0, len(keys))
	for _, key := range keys {
		r := buckets[key]
		s := sums[key]
		n := float64(r.PostCount)
		r.AvgEngagementRate = round2(s[0] / n)
		r.AvgClickRate = round2(s[1] / n)
		r.AvgShareRate = round2(s[2] / n)
		r.AvgCommentRate = round2(s[3] / n)
		out = append(out, *r)
	}
	return out, nil
}

// TopicRow aggregates performance per issue topic.
type TopicRow struct {
	Topic     string
	PostCount int

	AvgEngagementRate float64
	AvgShareRate      float64
	AvgCommentRate    float64

	ViralCount int
	HighCount  int

	TotalReach      int
	TotalEngagement int
}

// TopicPerformance aggregates the window's posts per issue topic,
// best average engagement rate first. Posts with no topic fall into
// an "unclassified" bucket.
func TopicPerformance(ctx context.Context, db *postdb.DB, start, end string) ([]TopicRow, error) {
	data, err := load(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	buckets := map[string]*TopicRow{}
	sums := map[string]*[3]float64{}
	var keys []string
	for _, d := range data {
		topic := "unclassified"
		if d.hasC && d.class.IssueTopic != "" {
			topic = d.class.IssueTopic
		}
		r, ok := buckets[topic]
		if !ok {
			r = &TopicRow{Topic: topic}
			buckets[topic] = r
			sums[topic] = &[3]float64{}
			keys = append(keys, topic)
		}
		r.PostCount++
		r.TotalReach += d.max.Reach
		r.TotalEngagement += d.max.Likes + d.max.Comments + d.max.Shares
		s := sums[topic]
		s[0] += d.perf.EngagementRate
		s[1] += d.perf.ShareRate
		s[2] += d.perf.CommentRate
		switch d.perf.Tier {
		case model.TierViral:
			r.ViralCount++
		case model.TierHigh:
			r.HighCount++
		}
	}
	out := make([]TopicRow, 0, len(keys))
	for _, key := range keys {
		r := buckets[key]
		s := sums[key]
		n := float64(r.PostCount)
		r.AvgEngagementRate = round2(s[0] / n)
		r.AvgShareRate = round2(s[1] / n)
		r.AvgCommentRate = round2(s[2] / n)
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgEngagementRate > out[j].AvgEngagementRate })
	return out, nil
}

// SlotRow aggregates performance for one (time slot, weekday) cell.
type SlotRow struct {
	TimeSlot  string
	DayOfWeek string
	PostCount int

	AvgEngagementRate float64
	AvgClickRate      float64
	TotalReach        int
}

var weekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// TimeSlotPerformance aggregates classified posts per (time slot,
// weekday) pair, best engagement rate first. Cells with fewer than two
// posts are dropped as noise.
func TimeSlotPerformance(ctx context.Context, db *postdb.DB, start, end string) ([]SlotRow, error) {
	data, err := load(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	type cell struct{ slot, day string }
	buckets := map[cell]*SlotRow{}
	sums := map[cell]*[2]float64{}
	var keys []cell
	for _, d := range data {
		if !d.hasC || d.class.TimeSlot == "" {
			continue
		}
		k := cell{d.class.TimeSlot, weekdayNames[d.class.DayOfWeek]}
		r, ok := buckets[k]
		if !ok {
			r = &SlotRow{TimeSlot: k.slot, DayOfWeek: k.day}
			buckets[k] = r
			sums[k] = &[2]float64{}
			keys = append(keys, k)
		}
		r.PostCount++
		r.TotalReach += d.max.Reach
		s := sums[k]
		s[0] += d.perf.EngagementRate
		s[1] += d.perf.ClickThroughRate
	}
	var out []SlotRow
	for _, k := range keys {
		r := buckets[k]
		if r.PostCount < 2 {
			continue
		}
		s := sums[k]
		n := float64(r.PostCount)
		r.AvgEngagementRate = round2(s[0] / n)
		r.AvgClickRate = round2(s[1] / n)
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgEngagementRate > out[j].AvgEngagementRate })
	return out, nil
}

// TopPost is one entry of a top-posts listing.
type TopPost struct {
	PostID         string
	MessagePreview string
	CreatedTime    time.Time
	Topic          string
	TimeSlot       string
	EngagementRate float64
	Tier           string
	Reach          int
}

// TopPosts lists the window's best posts by engagement rate, with
// optional topic and time-slot filters.
func TopPosts(ctx context.Context, db *postdb.DB, start, end string, limit int, topic, timeSlot string) ([]TopPost, error) {
	data, err := load(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	var out []TopPost
	for _, d := range data {
		if topic != "" && (!d.hasC || d.class.IssueTopic != topic) {
			continue
		}
		if timeSlot != "" && (!d.hasC || d.class.TimeSlot != timeSlot) {
			continue
		}
		tp := TopPost{
			PostID:         d.post.ID,
			MessagePreview: util.Truncate(d.post.Message, 100),
			CreatedTime:    d.post.CreatedTime,
			EngagementRate: d.perf.EngagementRate,
			Tier:           d.perf.Tier,
			Reach:          d.max.Reach,
		}
		if d.hasC {
			tp.Topic = d.class.IssueTopic
			tp.TimeSlot = d.class.TimeSlot
		}
		out = append(out, tp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EngagementRate > out[j].EngagementRate })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
