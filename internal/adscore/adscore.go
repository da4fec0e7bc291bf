package adscore

import (
	"math"

	"pagepulse/internal/benchmark"
	"pagepulse/internal/model"
)

// Component weights, summing to 1.0.
const (
	WeightEngagement = 0.30
	WeightShare      = 0.25
	WeightComment    = 0.15
	WeightTopic      = 0.15
	WeightTimeSlot   = 0.15
)

// Recommendation thresholds on the weighted total.
const (
	ThresholdYes   = 70
	ThresholdMaybe = 50
)

// Normalize maps v onto [0,100] against a population maximum. A
// degenerate maximum (<= 0) returns the neutral midpoint 50 instead of
// dividing by zero.
func Normalize(v, max float64) float64 {
	if max <= 0 {
		return 50
	}
	score := v / max * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// factorScore converts a relative-performance factor into a [0,100]
// score: 1.0 (average) -> 50, saturating at 100 when the factor
// reaches 2.0.
func factorScore(factor float64) float64 {
	return math.Min(100, factor*50)
}

// Score computes the advertising-potential result for one post. Pure
// function of the performance record, classification, and the current
// benchmark snapshot; callers must ensure the snapshot reflects the
// current run, since a stale global average skews every score.
func Score(p model.Performance, c model.Classification, s benchmark.Snapshot) model.AdPotential {
	r := model.AdPotential{PostID: p.PostID}

	r.EngagementScore = Normalize(p.EngagementRate, s.MaxER)
	r.ShareScore = Normalize(p.ShareRate, s.MaxSR)
	r.CommentScore = Normalize(p.CommentRate, s.MaxCR)

	r.TopicFactor = round2(s.TopicFactor(c.IssueTopic))
	r.TopicScore = factorScore(s.TopicFactor(c.IssueTopic))
	r.TimeFactor = round2(s.SlotFactor(c.TimeSlot))
	r.TimeScore = factorScore(s.SlotFactor(c.TimeSlot))

	total := r.EngagementScore*WeightEngagement +
		r.ShareScore*WeightShare +
		r.CommentScore*WeightComment +
		r.TopicScore*WeightTopic +
		r.TimeScore*WeightTimeSlot
	r.Score = math.Round(total*10) / 10
	r.Recommendation = Recommend(r.Score)
	return r
}

// Recommend maps a total score to the three-way recommendation.
func Recommend(score float64) string {
	switch {
	case score >= ThresholdYes:
		return model.RecommendYes
	case score >= ThresholdMaybe:
		return model.RecommendMaybe
	default:
		return model.RecommendNo
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
