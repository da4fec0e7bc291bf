package kpi

import (
	"math"
	"sort"

	"pagepulse/internal/model"
)

// Rates computes the per-post KPI record from maximum-observed
// counters. Division-by-zero cases resolve to 0 rather than erroring:
// every rate is 0 when reach is 0, virality is 0 when there are no
// reactions.
func Rates(c model.Counters) model.Performance {
	var p model.Performance
	reactions := float64(c.TotalReactions())
	comments := float64(c.Comments)
	shares := float64(c.Shares)
	if c.Reach > 0 {
		reach := float64(c.Reach)
		p.EngagementRate = (reactions + comments + shares) / reach * 100
		p.ClickThroughRate = float64(c.Clicks) / reach * 100
		p.ShareRate = shares / reach * 100
		p.CommentRate = comments / reach * 100
	}
	if reactions > 0 {
		p.ViralityScore = shares / reactions
	}
	p.DiscussionDepth = comments / (float64(c.Likes) + 1)
	return p
}

// Round4 rounds to 4 decimals, the persistence precision for rates.
func Round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// Round2 rounds to 2 decimals.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// CutPoints holds the cohort's percentile thresholds for tiering.
type CutPoints struct {
	P25, P75, P95 float64
	N             int
	sorted        []float64
}

// Cohort computes tier cut points from the full set of engagement
// rates for the current run. Cut point index is floor(percentile * N)
// clamped into range, over the ascending-sorted cohort.
func Cohort(rates []float64) CutPoints {
	cp := CutPoints{N: len(rates)}
	if cp.N == 0 {
		return cp
	}
	cp.sorted = append([]float64(nil), rates...)
	sort.Float64s(cp.sorted)
	at := func(q float64) float64 {
		i := int(float64(cp.N) * q)
		if i >= cp.N {
			i = cp.N - 1
		}
		return cp.sorted[i]
	}
	cp.P25 = at(0.25)
	cp.P75 = at(0.75)
	cp.P95 = at(0.95)
	return cp
}

// Tier assigns the performance tier for a rate, top-down against the
// cohort cut points. Tier boundaries depend on the entire current
// cohort, so a post's tier can change between runs even when its own
// KPIs did not.
func (cp CutPoints) Tier(rate float64) string {
	switch {
	case cp.N == 0:
		return model.TierLow
	case rate >= cp.P95:
		return model.TierViral
	case rate >= cp.P75:
		return model.TierHigh
	case rate >= cp.P25:
		return model.TierAverage
	default:
		return model.TierLow
	}
}

// PercentileRank returns the share of cohort members with a rate at or
// below the given rate, as a percentage.
func (cp CutPoints) PercentileRank(rate float64) float64 {
	if cp.N == 0 {
		return 0
	}
	n := 0
	for _, v := range cp.sorted {
		if v > rate {
			break
		}
		n++
	}
	return float64(n) / float64(cp.N) * 100
}
