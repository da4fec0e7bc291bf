package model

import "time"

// Page represents the tracked Facebook page.
type Page struct {
	ID             string
	Name           string
	FanCount       int
	FollowersCount int
	LastSyncedAt   time.Time
}

// Post represents a published page post. Posts are written once when
// first observed and never mutated afterwards, except to backfill a
// missing field.
type Post struct {
	ID          string
	PageID      string
	Message     string
	CreatedTime time.Time
	Permalink   string
	PostType    string
}

// Snapshot is a point-in-time observation of a post's counters, keyed
// by (post id, fetch date). Snapshots accumulate over a post's tracked
// lifetime and are never deleted.
type Snapshot struct {
	PostID    string
	FetchDate string // YYYY-MM-DD
	Counters
}

// Counters holds raw interaction counts for a post.
type Counters struct {
	Reach          int
	Clicks         int
	Likes          int
	Comments       int
	Shares         int
	VideoViews     int
	ReactionsLike  int
	ReactionsLove  int
	ReactionsWow   int
	ReactionsHaha  int
	ReactionsSorry int
	ReactionsAnger int
}

// TotalReactions sums the per-type reaction counts.
func (c Counters) TotalReactions() int {
	return c.ReactionsLike + c.ReactionsLove + c.ReactionsWow + c.ReactionsHaha + c.ReactionsSorry + c.ReactionsAnger
}

// Classification is the derived one-to-one record per post: text
// features, taxonomy results, CTA flags, and temporal fields. The
// latest ad-potential score and recommendation are attached here for
// quick lookup.
type Classification struct {
	PostID string

	MediaType    string
	HasLink      bool
	HasHashtag   bool
	HashtagCount int

	MessageLength int
	LengthTier    string // short/medium/long
	WordCount     int

	FormatType string // empty when unclassified
	IssueTopic string // empty when unclassified

	HasCTA  bool
	CTAType string

	HourOfDay  int // local (UTC+offset)
	DayOfWeek  int // 0=Monday .. 6=Sunday
	WeekOfYear int
	Month      int
	IsWeekend  bool
	TimeSlot   string // morning/noon/afternoon/evening/night

	AdScore          float64
	AdRecommendation string
}

// Performance holds computed KPIs for a post at a snapshot date.
type Performance struct {
	PostID       string
	SnapshotDate string

	EngagementRate   float64
	ClickThroughRate float64
	ShareRate        float64
	CommentRate      float64

	VsPageAvg7d  float64
	VsPageAvg30d float64

	Tier           string // viral/high/average/low
	PercentileRank float64

	ViralityScore   float64
	DiscussionDepth float64
}

// Benchmark is a derived aggregate keyed by (type, key, period).
type Benchmark struct {
	Type       string // page/topic/time_slot
	Key        string
	Period     string // rolling_7d/rolling_30d/all_time
	AvgER      float64
	SampleSize int
}

// Benchmark dimension types and periods.
const (
	BenchmarkPage     = "page"
	BenchmarkTopic    = "topic"
	BenchmarkTimeSlot = "time_slot"

	Period7d      = "rolling_7d"
	Period30d     = "rolling_30d"
	PeriodAllTime = "all_time"
)

// Performance tiers, best first.
const (
	TierViral   = "viral"
	TierHigh    = "high"
	TierAverage = "average"
	TierLow     = "low"
)

// AdPotential is the scorer output for one post.
type AdPotential struct {
	PostID         string
	Score          float64 // 0-100, one decimal
	Recommendation string  // Yes/Maybe/No

	EngagementScore float64
	ShareScore      float64
	CommentScore    float64
	TopicFactor     float64
	TopicScore      float64
	TimeFactor      float64
	TimeScore       float64
}

// Ad recommendation values.
const (
	RecommendYes   = "Yes"
	RecommendMaybe = "Maybe"
	RecommendNo    = "No"
)
