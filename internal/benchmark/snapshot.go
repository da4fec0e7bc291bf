package benchmark

import "pagepulse/internal/model"

// Snapshot is the immutable view of the current run's population
// statistics consumed by the ad-potential scorer: population maxima
// for normalization plus all-time average engagement rates per
// dimension. Computed once per run and threaded through, so the scorer
// stays a pure function of its arguments.
type Snapshot struct {
	MaxER float64
	MaxSR float64
	MaxCR float64

	OverallAvgER float64
	TopicAvgER   map[string]float64
	SlotAvgER    map[string]float64
}

// BuildSnapshot derives a Snapshot from the run's performance records
// and classifications. Engagement rates at or above 100 are excluded
// from the ER maximum as outlier guard (tiny-reach posts can exceed
// 100 when weighted interactions beat reach).
func BuildSnapshot(perf []model.Performance, class map[string]model.Classification) Snapshot {
	s := Snapshot{
		TopicAvgER: make(map[string]float64),
		SlotAvgER:  make(map[string]float64),
	}
	type acc struct {
		sum float64
		n   int
	}
	topics := map[string]*acc{}
	slots := map[string]*acc{}
	total := acc{}
	for _, p := range perf {
		if p.EngagementRate < 100 && p.EngagementRate > s.MaxER {
			s.MaxER = p.EngagementRate
		}
		if p.ShareRate > s.MaxSR {
			s.MaxSR = p.ShareRate
		}
		if p.CommentRate > s.MaxCR {
			s.MaxCR = p.CommentRate
		}
		total.sum += p.EngagementRate
		total.n++
		if c, ok := class[p.PostID]; ok {
			if c.IssueTopic != "" {
				a := topics[c.IssueTopic]
				if a == nil {
					a = &acc{}
					topics[c.IssueTopic] = a
				}
				a.sum += p.EngagementRate
				a.n++
			}
			if c.TimeSlot != "" {
				a := slots[c.TimeSlot]
				if a == nil {
					a = &acc{}
					slots[c.TimeSlot] = a
				}
				a.sum += p.EngagementRate
				a.n++
			}
		}
	}
	if total.n > 0 {
		s.OverallAvgER = total.sum / float64(total.n)
	}
	for k, a := range topics {
		s.TopicAvgER[k] = a.sum / float64(a.n)
	}
	for k, a := range slots {
		s.SlotAvgER[k] = a.sum / float64(a.n)
	}
	return s
}

// TopicFactor returns a topic's average engagement rate relative to
// the overall average. A never-seen topic or a zero overall average
// yields the neutral factor 1.0.
func (s Snapshot) TopicFactor(topic string) float64 {
	avg, ok := s.TopicAvgER[topic]
	if !ok || s.OverallAvgER <= 0 {
		return 1
	}
	return avg / s.OverallAvgER
}

// SlotFactor returns a time slot's average engagement rate relative to
// the overall average, 1.0 when unknown.
func (s Snapshot) SlotFactor(slot string) float64 {
	avg, ok := s.SlotAvgER[slot]
	if !ok || s.OverallAvgER <= 0 {
		return 1
	}
	return avg / s.OverallAvgER
}
