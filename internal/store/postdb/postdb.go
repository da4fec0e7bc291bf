package postdb

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"pagepulse/internal/model"
)

// DB wraps the SQLite database holding raw entities and derived
// analytics tables. All derived tables are replaced via idempotent
// upsert-by-key each run; the store is a single-writer resource during
// a run.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS pages (
	  page_id TEXT PRIMARY KEY,
	  page_name TEXT,
	  fan_count INTEGER DEFAULT 0,
	  followers_count INTEGER DEFAULT 0,
	  last_synced_at TEXT
	);
	CREATE TABLE IF NOT EXISTS posts (
	  post_id TEXT PRIMARY KEY,
	  page_id TEXT NOT NULL,
	  created_time TEXT NOT NULL,
	  message TEXT DEFAULT '',
	  post_type TEXT DEFAULT '',
	  permalink_url TEXT DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS post_snapshots (
	  post_id TEXT NOT NULL,
	  fetch_date TEXT NOT NULL,
	  reach INTEGER DEFAULT 0,
	  clicks INTEGER DEFAULT 0,
	  likes INTEGER DEFAULT 0,
	  comments INTEGER DEFAULT 0,
	  shares INTEGER DEFAULT 0,
	  video_views INTEGER DEFAULT 0,
	  reactions_like INTEGER DEFAULT 0,
	  reactions_love INTEGER DEFAULT 0,
	  reactions_wow INTEGER DEFAULT 0,
	  reactions_haha INTEGER DEFAULT 0,
	  reactions_sorry INTEGER DEFAULT 0,
	  reactions_anger INTEGER DEFAULT 0,
	  UNIQUE(post_id, fetch_date)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_post ON post_snapshots(post_id);
	CREATE TABLE IF NOT EXISTS classifications (
	  post_id TEXT PRIMARY KEY,
	  media_type TEXT DEFAULT '',
	  has_link INTEGER DEFAULT 0,
	  has_hashtag INTEGER DEFAULT 0,
	  hashtag_count INTEGER DEFAULT 0,
	  message_length INTEGER DEFAULT 0,
	  length_tier TEXT DEFAULT '',
	  word_count INTEGER DEFAULT 0,
	  format_type TEXT DEFAULT '',
	  issue_topic TEXT DEFAULT '',
	  has_cta INTEGER DEFAULT 0,
	  cta_type TEXT DEFAULT '',
	  hour_of_day INTEGER DEFAULT 0,
	  day_of_week INTEGER DEFAULT 0,
	  week_of_year INTEGER DEFAULT 0,
	  month INTEGER DEFAULT 0,
	  is_weekend INTEGER DEFAULT 0,
	  time_slot TEXT DEFAULT '',
	  ad_score REAL DEFAULT 0,
	  ad_recommendation TEXT DEFAULT '',
	  updated_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_class_topic ON classifications(issue_topic);
	CREATE INDEX IF NOT EXISTS idx_class_slot ON classifications(time_slot);
	CREATE TABLE IF NOT EXISTS performance (
	  post_id TEXT NOT NULL,
	  snapshot_date TEXT NOT NULL,
	  engagement_rate REAL DEFAULT 0,
	  click_through_rate REAL DEFAULT 0,
	  share_rate REAL DEFAULT 0,
	  comment_rate REAL DEFAULT 0,
	  vs_page_avg_7d REAL DEFAULT 0,
	  vs_page_avg_30d REAL DEFAULT 0,
	  performance_tier TEXT DEFAULT '',
	  percentile_rank REAL DEFAULT 0,
	  virality_score REAL DEFAULT 0,
	  discussion_depth REAL DEFAULT 0,
	  UNIQUE(post_id, snapshot_date)
	);
	CREATE INDEX IF NOT EXISTS idx_perf_date ON performance(snapshot_date);
	CREATE TABLE IF NOT EXISTS benchmarks (
	  benchmark_type TEXT NOT NULL,
	  benchmark_key TEXT NOT NULL,
	  period TEXT NOT NULL,
	  avg_engagement_rate REAL DEFAULT 0,
	  sample_size INTEGER DEFAULT 0,
	  updated_at TEXT,
	  UNIQUE(benchmark_type, benchmark_key, period)
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT
	);
	`)
	return err
}

// UpsertPage inserts or refreshes the tracked page row.
func (d *DB) UpsertPage(ctx context.Context, p model.Page) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO pages(page_id, page_name, fan_count, followers_count, last_synced_at)
		VALUES(?,?,?,?,?)
		ON CONFLICT(page_id) DO UPDATE SET page_name=excluded.page_name, fan_count=excluded.fan_count,
		followers_count=excluded.followers_count, last_synced_at=excluded.last_synced_at`,
		p.ID, p.Name, p.FanCount, p.FollowersCount, p.LastSyncedAt.UTC().Format(time.RFC3339))
	return err
}

// UpsertPost inserts a post when first observed. Existing rows are
// only updated to backfill fields that were empty.
func (d *DB) UpsertPost(ctx context.Context, p model.Post) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO posts(post_id, page_id, created_time, message, post_type, permalink_url)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(post_id) DO UPDATE SET
		  message = CASE WHEN posts.message = '' THEN excluded.message ELSE posts.message END,
		  post_type = CASE WHEN posts.post_type = '' THEN excluded.post_type ELSE posts.post_type END,
		  permalink_url = CASE WHEN posts.permalink_url = '' THEN excluded.permalink_url ELSE posts.permalink_url END`,
		p.ID, p.PageID, p.CreatedTime.UTC().Format(time.RFC3339), p.Message, p.PostType, p.Permalink)
	return err
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	var out []model.Post
	for rows.Next() {
		var p model.Post
		var created string
		if err := rows.Scan(&p.ID, &p.PageID, &created, &p.Message, &p.PostType, &p.Permalink); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			p.CreatedTime = ts
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const postCols = `post_id, page_id, created_time, message, post_type, permalink_url`

// ListPosts returns all posts ordered by publish time descending.
func (d *DB) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+postCols+` FROM posts ORDER BY created_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// PostsWithoutClassification returns posts not yet classified.
func (d *DB) PostsWithoutClassification(ctx context.Context) ([]model.Post, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+postCols+` FROM posts p
		WHERE NOT EXISTS (SELECT 1 FROM classifications c WHERE c.post_id = p.post_id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// GetPost returns one post, or sql.ErrNoRows.
func (d *DB) GetPost(ctx context.Context, postID string) (model.Post, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+postCols+` FROM posts WHERE post_id=?`, postID)
	if err != nil {
		return model.Post{}, err
	}
	defer rows.Close()
	posts, err := scanPosts(rows)
	if err != nil {
		return model.Post{}, err
	}
	if len(posts) == 0 {
		return model.Post{}, sql.ErrNoRows
	}
	return posts[0], nil
}

// UpsertSnapshot stores one observation keyed (post, fetch date).
// Re-fetching the same day replaces the row, never duplicates it.
func (d *DB) UpsertSnapshot(ctx context.Context, s model.Snapshot) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO post_snapshots(post_id, fetch_date, reach, clicks, likes, comments,
		shares, video_views, reactions_like, reactions_love, reactions_wow, reactions_haha, reactions_sorry, reactions_anger)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(post_id, fetch_date) DO UPDATE SET
		  reach=excluded.reach, clicks=excluded.clicks, likes=excluded.likes, comments=excluded.comments,
		  shares=excluded.shares, video_views=excluded.video_views,
		  reactions_like=excluded.reactions_like, reactions_love=excluded.reactions_love,
		  reactions_wow=excluded.reactions_wow, reactions_haha=excluded.reactions_haha,
		  reactions_sorry=excluded.reactions_sorry, reactions_anger=excluded.reactions_anger`,
		s.PostID, s.FetchDate, s.Reach, s.Clicks, s.Likes, s.Comments, s.Shares, s.VideoViews,
		s.ReactionsLike, s.ReactionsLove, s.ReactionsWow, s.ReactionsHaha, s.ReactionsSorry, s.ReactionsAnger)
	return err
}

// HasSnapshot reports whether any snapshot exists for a post.
func (d *DB) HasSnapshot(ctx context.Context, postID string) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM post_snapshots WHERE post_id=?`, postID).Scan(&n)
	return n > 0, err
}

// ListSnapshots returns a post's snapshots ordered by fetch date.
func (d *DB) ListSnapshots(ctx context.Context, postID string) ([]model.Snapshot, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT post_id, fetch_date, reach, clicks, likes, comments, shares, video_views,
		reactions_like, reactions_love, reactions_wow, reactions_haha, reactions_sorry, reactions_anger
		FROM post_snapshots WHERE post_id=? ORDER BY fetch_date ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		if err := rows.Scan(&s.PostID, &s.FetchDate, &s.Reach, &s.Clicks, &s.Likes, &s.Comments, &s.Shares, &s.VideoViews,
			&s.ReactionsLike, &s.ReactionsLove, &s.ReactionsWow, &s.ReactionsHaha, &s.ReactionsSorry, &s.ReactionsAnger); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MaxCounters returns, per post, the maximum observed value of each
// counter across all its snapshots. Observations are monotonically
// non-decreasing in the real world; taking the max absorbs transient
// under-reporting from the API.
func (d *DB) MaxCounters(ctx context.Context) (map[string]model.Counters, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT post_id, MAX(reach), MAX(clicks), MAX(likes), MAX(comments),
		MAX(shares), MAX(video_views), MAX(reactions_like), MAX(reactions_love), MAX(reactions_wow),
		MAX(reactions_haha), MAX(reactions_sorry), MAX(reactions_anger)
		FROM post_snapshots GROUP BY post_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]model.Counters)
	for rows.Next() {
		var id string
		var c model.Counters
		if err := rows.Scan(&id, &c.Reach, &c.Clicks, &c.Likes, &c.Comments, &c.Shares, &c.VideoViews,
			&c.ReactionsLike, &c.ReactionsLove, &c.ReactionsWow, &c.ReactionsHaha, &c.ReactionsSorry, &c.ReactionsAnger); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}

// SaveCursor stores a named cursor value.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns a named cursor value, or "" when unset.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v sql.NullString
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.String, nil
}
