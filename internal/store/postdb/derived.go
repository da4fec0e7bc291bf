package postdb

import (
	"context"
	"database/sql"
	"time"

	"pagepulse/internal/model"
)

// UpsertClassification writes the one-to-one classification row for a
// post. The ad score columns are preserved on conflict; they are
// maintained separately by UpdateAdPotential.
func (d *DB) UpsertClassification(ctx context.Context, c model.Classification) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO classifications(post_id, media_type, has_link, has_hashtag,
		hashtag_count, message_length, length_tier, word_count, format_type, issue_topic, has_cta, cta_type,
		hour_of_day, day_of_week, week_of_year, month, is_weekend, time_slot, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(post_id) DO UPDATE SET
		  media_type=excluded.media_type, has_link=excluded.has_link, has_hashtag=excluded.has_hashtag,
		  hashtag_count=excluded.hashtag_count, message_length=excluded.message_length,
		  length_tier=excluded.length_tier, word_count=excluded.word_count,
		  format_type=excluded.format_type, issue_topic=excluded.issue_topic,
		  has_cta=excluded.has_cta, cta_type=excluded.cta_type,
		  hour_of_day=excluded.hour_of_day, day_of_week=excluded.day_of_week,
		  week_of_year=excluded.week_of_year, month=excluded.month,
		  is_weekend=excluded.is_weekend, time_slot=excluded.time_slot,
		  updated_at=excluded.updated_at`,
		c.PostID, c.MediaType, c.HasLink, c.HasHashtag, c.HashtagCount, c.MessageLength, c.LengthTier,
		c.WordCount, c.FormatType, c.IssueTopic, c.HasCTA, c.CTAType, c.HourOfDay, c.DayOfWeek,
		c.WeekOfYear, c.Month, c.IsWeekend, c.TimeSlot, time.Now().UTC().Format(time.RFC3339))
	return err
}

const classCols = `post_id, media_type, has_link, has_hashtag, hashtag_count, message_length, length_tier,
	word_count, format_type, issue_topic, has_cta, cta_type, hour_of_day, day_of_week, week_of_year,
	month, is_weekend, time_slot, ad_score, ad_recommendation`

func scanClassification(row interface{ Scan(...any) error }) (model.Classification, error) {
	var c model.Classification
	err := row.Scan(&c.PostID, &c.MediaType, &c.HasLink, &c.HasHashtag, &c.HashtagCount, &c.MessageLength,
		&c.LengthTier, &c.WordCount, &c.FormatType, &c.IssueTopic, &c.HasCTA, &c.CTAType, &c.HourOfDay,
		&c.DayOfWeek, &c.WeekOfYear, &c.Month, &c.IsWeekend, &c.TimeSlot, &c.AdScore, &c.AdRecommendation)
	return c, err
}

// GetClassification returns one classification, or sql.ErrNoRows.
func (d *DB) GetClassification(ctx context.Context, postID string) (model.Classification, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+classCols+` FROM classifications WHERE post_id=?`, postID)
	return scanClassification(row)
}

// ListClassifications returns all classification rows keyed by post.
func (d *DB) ListClassifications(ctx context.Context) (map[string]model.Classification, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+classCols+` FROM classifications`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]model.Classification)
	for rows.Next() {
		c, err := scanClassification(rows)
		if err != nil {
			return nil, err
		}
		out[c.PostID] = c
	}
	return out, rows.Err()
}

// UpsertPerformance writes a KPI row keyed (post, snapshot date).
func (d *DB) UpsertPerformance(ctx context.Context, p model.Performance) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO performance(post_id, snapshot_date, engagement_rate,
		click_through_rate, share_rate, comment_rate, vs_page_avg_7d, vs_page_avg_30d,
		performance_tier, percentile_rank, virality_score, discussion_depth)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(post_id, snapshot_date) DO UPDATE SET
		  engagement_rate=excluded.engagement_rate, click_through_rate=excluded.click_through_rate,
		  share_rate=excluded.share_rate, comment_rate=excluded.comment_rate,
		  vs_page_avg_7d=excluded.vs_page_avg_7d, vs_page_avg_30d=excluded.vs_page_avg_30d,
		  performance_tier=excluded.performance_tier, percentile_rank=excluded.percentile_rank,
		  virality_score=excluded.virality_score, discussion_depth=excluded.discussion_depth`,
		p.PostID, p.SnapshotDate, p.EngagementRate, p.ClickThroughRate, p.ShareRate, p.CommentRate,
		p.VsPageAvg7d, p.VsPageAvg30d, p.Tier, p.PercentileRank, p.ViralityScore, p.DiscussionDepth)
	return err
}

const perfCols = `post_id, snapshot_date, engagement_rate, click_through_rate, share_rate, comment_rate,
	vs_page_avg_7d, vs_page_avg_30d, performance_tier, percentile_rank, virality_score, discussion_depth`

func scanPerformance(rows *sql.Rows) ([]model.Performance, error) {
	var out []model.Performance
	for rows.Next() {
		var p model.Performance
		if err := rows.Scan(&p.PostID, &p.SnapshotDate, &p.EngagementRate, &p.ClickThroughRate, &p.ShareRate,
			&p.CommentRate, &p.VsPageAvg7d, &p.VsPageAvg30d, &p.Tier, &p.PercentileRank,
			&p.ViralityScore, &p.DiscussionDepth); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPerformance returns all KPI rows.
func (d *DB) ListPerformance(ctx context.Context) ([]model.Performance, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+perfCols+` FROM performance ORDER BY snapshot_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPerformance(rows)
}

// LatestPerformance returns the most recent KPI row per post.
func (d *DB) LatestPerformance(ctx context.Context) (map[string]model.Performance, error) {
	all, err := d.ListPerformance(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Performance)
	for _, p := range all { // ascending: later dates overwrite
		out[p.PostID] = p
	}
	return out, nil
}

// ReplaceBenchmarks upserts the full benchmark set for the run.
func (d *DB) ReplaceBenchmarks(ctx context.Context, rows []model.Benchmark) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, b := range rows {
		_, err := d.sql.ExecContext(ctx, `INSERT INTO benchmarks(benchmark_type, benchmark_key, period,
			avg_engagement_rate, sample_size, updated_at) VALUES(?,?,?,?,?,?)
			ON CONFLICT(benchmark_type, benchmark_key, period) DO UPDATE SET
			  avg_engagement_rate=excluded.avg_engagement_rate, sample_size=excluded.sample_size,
			  updated_at=excluded.updated_at`,
			b.Type, b.Key, b.Period, b.AvgER, b.SampleSize, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListBenchmarks returns all benchmark rows.
func (d *DB) ListBenchmarks(ctx context.Context) ([]model.Benchmark, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT benchmark_type, benchmark_key, period, avg_engagement_rate,
		sample_size FROM benchmarks ORDER BY benchmark_type, benchmark_key, period`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Benchmark
	for rows.Next() {
		var b model.Benchmark
		if err := rows.Scan(&b.Type, &b.Key, &b.Period, &b.AvgER, &b.SampleSize); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateAdPotential attaches the latest ad score and recommendation to
// a post's classification row.
func (d *DB) UpdateAdPotential(ctx context.Context, postID string, score float64, recommendation string) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE classifications SET ad_score=?, ad_recommendation=? WHERE post_id=?`,
		score, recommendation, postID)
	return err
}

// AdCandidate is a row of the promotion shortlist.
type AdCandidate struct {
	PostID         string
	Score          float64
	Recommendation string
	IssueTopic     string
	FormatType     string
	Tier           string
	Permalink      string
}

// TopAdCandidates returns up to limit posts with ad score at or above
// minScore, best first.
func (d *DB) TopAdCandidates(ctx context.Context, limit int, minScore float64) ([]AdCandidate, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT c.post_id, c.ad_score, c.ad_recommendation, c.issue_topic,
		c.format_type, COALESCE(pf.performance_tier, ''), COALESCE(p.permalink_url, '')
		FROM classifications c
		LEFT JOIN posts p ON p.post_id = c.post_id
		LEFT JOIN (SELECT post_id, performance_tier, MAX(snapshot_date) FROM performance GROUP BY post_id) pf
		  ON pf.post_id = c.post_id
		WHERE c.ad_score >= ?
		ORDER BY c.ad_score DESC
		LIMIT ?`, minScore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AdCandidate
	for rows.Next() {
		var c AdCandidate
		if err := rows.Scan(&c.PostID, &c.Score, &c.Recommendation, &c.IssueTopic, &c.FormatType, &c.Tier, &c.Permalink); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
