package benchmark

import (
	"time"

	"pagepulse/internal/model"
)

// windows maps period names to their day spans; 0 means unbounded.
var windows = []struct {
	period string
	days   int
}{
	{model.Period7d, 7},
	{model.Period30d, 30},
	{model.PeriodAllTime, 0},
}

// Compute produces the full benchmark set for the current run: mean
// engagement rate and sample size per (dimension, value, window).
// Dimension values with zero samples in a window produce no row.
// Output order is deterministic: dimension type, then first
// appearance of the value, then window.
func Compute(perf []model.Performance, class map[string]model.Classification, now time.Time) []model.Benchmark {
	var out []model.Benchmark

	topicOf := func(p model.Performance) (string, bool) {
		c, ok := class[p.PostID]
		if !ok || c.IssueTopic == "" {
			return "", false
		}
		return c.IssueTopic, true
	}
	slotOf := func(p model.Performance) (string, bool) {
		c, ok := class[p.PostID]
		if !ok || c.TimeSlot == "" {
			return "", false
		}
		return c.TimeSlot, true
	}

	out = append(out, forDimension(model.BenchmarkPage, perf, now, func(model.Performance) (string, bool) {
		return "overall", true
	})...)
	out = append(out, forDimension(model.BenchmarkTopic, perf, now, topicOf)...)
	out = append(out, forDimension(model.BenchmarkTimeSlot, perf, now, slotOf)...)
	return out
}

func forDimension(typ string, perf []model.Performance, now time.Time, keyOf func(model.Performance) (string, bool)) []model.Benchmark {
	var keys []string
	seen := map[string]bool{}
	for _, p := range perf {
		if k, ok := keyOf(p); ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	var out []model.Benchmark
	for _, key := range keys {
		for _, w := range windows {
			sum, n := 0.0, 0
			for _, p := range perf {
				k, ok := keyOf(p)
				if !ok || k != key {
					continue
				}
				if !inWindow(p.SnapshotDate, now, w.days) {
					continue
				}
				sum += p.EngagementRate
				n++
			}
			if n == 0 {
				continue
			}
			out = append(out, model.Benchmark{
				Type:       typ,
				Key:        key,
				Period:     w.period,
				AvgER:      sum / float64(n),
				SampleSize: n,
			})
		}
	}
	return out
}

func inWindow(snapshotDate string, now time.Time, days int) bool {
	if days == 0 {
		return true
	}
	d, err := time.Parse("2006-01-02", snapshotDate)
	if err != nil {
		return false
	}
	return !d.Before(now.UTC().AddDate(0, 0, -days))
}
