package jobs

import (
	"context"
	"sort"
	"time"

	"pagepulse/internal/adscore"
	"pagepulse/internal/benchmark"
	"pagepulse/internal/classify"
	"pagepulse/internal/config"
	"pagepulse/internal/kpi"
	"pagepulse/internal/logging"
	"pagepulse/internal/metrics"
	"pagepulse/internal/model"
	"pagepulse/internal/store/postdb"
)

// RunAnalyticsOnce runs the derivation pipeline over the stored data:
// classify posts that have no classification yet, recompute KPIs and
// tiers for the whole cohort from maximum-observed counters, rebuild
// the benchmark table, and rescore every classified post's ad
// potential. The run reads only the store, so it is safe to repeat.
func RunAnalyticsOnce(ctx context.Context, db *postdb.DB, cfg config.Config) error {
	now := time.Now().UTC()
	start := time.Now()
	metrics.AnalyticsRuns.Inc()

	pending, err := db.PostsWithoutClassification(ctx)
	if err != nil {
		metrics.AnalyticsErrors.Inc()
		return err
	}
	for _, p := range pending {
		if err := db.UpsertClassification(ctx, classify.Post(p, cfg.Analytics.UTCOffsetHours)); err != nil {
			metrics.AnalyticsErrors.Inc()
			return err
		}
	}

	maxes, err := db.MaxCounters(ctx)
	if err != nil {
		metrics.AnalyticsErrors.Inc()
		return err
	}
	ids := make([]string, 0, len(maxes))
	for id := range maxes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fetchDate := localDate(now, cfg.Analytics.UTCOffsetHours)
	current := make([]model.Performance, 0, len(ids))
	rates := make([]float64, 0, len(ids))
	for _, id := range ids {
		p := kpi.Rates(maxes[id])
		p.PostID = id
		p.SnapshotDate = fetchDate
		p.EngagementRate = kpi.Round4(p.EngagementRate)
		p.ClickThroughRate = kpi.Round4(p.ClickThroughRate)
		p.ShareRate = kpi.Round4(p.ShareRate)
		p.CommentRate = kpi.Round4(p.CommentRate)
		p.ViralityScore = kpi.Round4(p.ViralityScore)
		p.DiscussionDepth = kpi.Round4(p.DiscussionDepth)
		current = append(current, p)
		rates = append(rates, p.EngagementRate)
	}
	for _, p := range current {
		if err := db.UpsertPerformance(ctx, p); err != nil {
			metrics.AnalyticsErrors.Inc()
			return err
		}
	}

	class, err := db.ListClassifications(ctx)
	if err != nil {
		metrics.AnalyticsErrors.Inc()
		return err
	}
	history, err := db.ListPerformance(ctx)
	if err != nil {
		metrics.AnalyticsErrors.Inc()
		return err
	}
	bms := benchmark.Compute(history, class, now)
	if err := db.ReplaceBenchmarks(ctx, bms); err != nil {
		metrics.AnalyticsErrors.Inc()
		return err
	}
	avg7, avg30 := pageAverages(bms)

	cp := kpi.Cohort(rates)
	for i := range current {
		p := &current[i]
		p.Tier = cp.Tier(p.EngagementRate)
		p.PercentileRank = kpi.Round2(cp.PercentileRank(p.EngagementRate))
		if avg7 > 0 {
			p.VsPageAvg7d = kpi.Round2(p.EngagementRate / avg7)
		}
		if avg30 > 0 {
			p.VsPageAvg30d = kpi.Round2(p.EngagementRate / avg30)
		}
		if err := db.UpsertPerformance(ctx, *p); err != nil {
			metrics.AnalyticsErrors.Inc()
			return err
		}
	}

	latest, err := db.LatestPerformance(ctx)
	if err != nil {
		metrics.AnalyticsErrors.Inc()
		return err
	}
	pop := make([]model.Performance, 0, len(latest))
	for _, p := range latest {
		pop = append(pop, p)
	}
	snap := benchmark.BuildSnapshot(pop, class)
	scored := 0
	for _, id := range ids {
		c, ok := class[id]
		if !ok {
			continue
		}
		p, ok := latest[id]
		if !ok {
			continue
		}
		r := adscore.Score(p, c, snap)
		if err := db.UpdateAdPotential(ctx, id, r.Score, r.Recommendation); err != nil {
			metrics.AnalyticsErrors.Inc()
			return err
		}
		scored++
	}

	logging.Info("analytics_once", map[string]any{
		"classified": len(pending), "posts": len(current), "benchmarks": len(bms), "scored": scored,
	})
	metrics.ObserveRunDuration(start)
	return nil
}

// pageAverages pulls the page-overall rolling averages out of a
// freshly computed benchmark set.
func pageAverages(bms []model.Benchmark) (avg7, avg30 float64) {
	for _, b := range bms {
		if b.Type != model.BenchmarkPage || b.Key != "overall" {
			continue
		}
		switch b.Period {
		case model.Period7d:
			avg7 = b.AvgER
		case model.Period30d:
			avg30 = b.AvgER
		}
	}
	return avg7, avg30
}
