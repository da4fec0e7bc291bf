package fbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pagepulse/internal/classify"
	"pagepulse/internal/metrics"
	"pagepulse/internal/model"
)

// Client defines the Graph API operations the collector uses.
type Client interface {
	GetPageInfo(ctx context.Context) (model.Page, error)
	ListPosts(ctx context.Context, since, until time.Time, limit int) ([]model.Post, error)
	GetPostCounters(ctx context.Context, postID string) (model.Counters, error)
}

// HTTPClient is an access-token client for the Facebook Graph API.
type HTTPClient struct {
	baseURL     string
	accessToken string
	pageID      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(accessToken, pageID, apiVersion string) *HTTPClient {
	if apiVersion == "" {
		apiVersion = "v23.0"
	}
	return &HTTPClient{
		baseURL:     "https://graph.facebook.com/" + apiVersion,
		accessToken: accessToken,
		pageID:      pageID,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("FB_API_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("FB_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func (c *HTTPClient) get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	if params == nil {
		params = url.Values{}
	}
	if params.Get("access_token") == "" {
		params.Set("access_token", c.accessToken)
	}
	u := rawURL
	if strings.Contains(u, "?") {
		// paging "next" URLs already carry their query
		u += "&" + params.Encode()
	} else {
		u += "?" + params.Encode()
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("graph api status %d: %s (code %d)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Code)
		}
		return nil, fmt.Errorf("graph api status %d", resp.StatusCode)
	}
	return resp, nil
}

// GetPageInfo fetches the page name and fan counts.
func (c *HTTPClient) GetPageInfo(ctx context.Context) (model.Page, error) {
	var out model.Page
	if c.pageID == "" {
		return out, errors.New("empty page id")
	}
	params := url.Values{"fields": {"id,name,fan_count,followers_count"}}
	resp, err := c.get(ctx, c.baseURL+"/"+url.PathEscape(c.pageID), params)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	var raw struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		FanCount       int    `json:"fan_count"`
		FollowersCount int    `json:"followers_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, err
	}
	out = model.Page{ID: raw.ID, Name: raw.Name, FanCount: raw.FanCount, FollowersCount: raw.FollowersCount, LastSyncedAt: time.Now().UTC()}
	return out, nil
}

// ListPosts fetches page posts in [since, until], following paging
// links until limit posts are collected.
func (c *HTTPClient) ListPosts(ctx context.Context, since, until time.Time, limit int) ([]model.Post, error) {
	params := url.Values{
		"fields": {"id,message,created_time,permalink_url,status_type"},
		"since":  {strconv.FormatInt(since.Unix(), 10)},
		"until":  {strconv.FormatInt(until.Unix(), 10)},
		"limit":  {strconv.Itoa(clamp(limit, 1, 100))},
	}
	next := c.baseURL + "/" + url.PathEscape(c.pageID) + "/posts"
	var out []model.Post
	for next != "" && len(out) < limit {
		resp, err := c.get(ctx, next, params)
		if err != nil {
			return out, err
		}
		var raw struct {
			Data []struct {
				ID          string `json:"id"`
				Message     string `json:"message"`
				CreatedTime string `json:"created_time"`
				Permalink   string `json:"permalink_url"`
				StatusType  string `json:"status_type"`
			} `json:"data"`
			Paging struct {
				Next string `json:"next"`
			} `json:"paging"`
		}
		err = json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if err != nil {
			return out, err
		}
		for _, d := range raw.Data {
			created, ok := classify.ParseTimestamp(d.CreatedTime)
			if !ok {
				metrics.TimestampFallbacks.Inc()
			}
			out = append(out, model.Post{
				ID:          d.ID,
				PageID:      c.pageID,
				Message:     d.Message,
				CreatedTime: created,
				Permalink:   d.Permalink,
				PostType:    d.StatusType,
			})
			if len(out) >= limit {
				break
			}
		}
		next = raw.Paging.Next
		params = nil // paging URLs carry the full query
	}
	return out, nil
}

// insight metrics collected per post; deprecated impressions metrics
// are intentionally absent.
var postMetrics = []string{
	"post_clicks",
	"post_impressions_unique",
	"post_video_views",
	"post_reactions_like_total",
	"post_reactions_love_total",
	"post_reactions_wow_total",
	"post_reactions_haha_total",
	"post_reactions_sorry_total",
	"post_reactions_anger_total",
}

// GetPostCounters fetches a post's insight metrics plus the reaction,
// comment, and share summaries, merged into one counter set.
func (c *HTTPClient) GetPostCounters(ctx context.Context, postID string) (model.Counters, error) {
	var out model.Counters
	base := c.baseURL + "/" + url.PathEscape(postID)

	insights, err := c.fetchInsights(ctx, base)
	if err != nil {
		return out, err
	}
	out.Clicks = insights["post_clicks"]
	out.Reach = insights["post_impressions_unique"]
	out.VideoViews = insights["post_video_views"]
	out.ReactionsLike = insights["post_reactions_like_total"]
	out.ReactionsLove = insights["post_reactions_love_total"]
	out.ReactionsWow = insights["post_reactions_wow_total"]
	out.ReactionsHaha = insights["post_reactions_haha_total"]
	out.ReactionsSorry = insights["post_reactions_sorry_total"]
	out.ReactionsAnger = insights["post_reactions_anger_total"]

	likes, err := c.fetchSummaryCount(ctx, base+"/reactions")
	if err != nil {
		return out, err
	}
	out.Likes = likes
	comments, err := c.fetchSummaryCount(ctx, base+"/comments")
	if err != nil {
		return out, err
	}
	out.Comments = comments
	shares, err := c.fetchShares(ctx, base)
	if err != nil {
		return out, err
	}
	out.Shares = shares
	return out, nil
}

func (c *HTTPClient) fetchInsights(ctx context.Context, base string) (map[string]int, error) {
	params := url.Values{"metric": {strings.Join(postMetrics, ",")}}
	resp, err := c.get(ctx, base+"/insights", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var raw struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value json.Number `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(raw.Data))
	for _, m := range raw.Data {
		if len(m.Values) == 0 {
			continue
		}
		if v, err := m.Values[0].Value.Int64(); err == nil {
			out[m.Name] = int(v)
		}
	}
	return out, nil
}

func (c *HTTPClient) fetchSummaryCount(ctx context.Context, edge string) (int, error) {
	params := url.Values{"summary": {"total_count"}, "limit": {"0"}}
	resp, err := c.get(ctx, edge, params)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var raw struct {
		Summary struct {
			TotalCount int `json:"total_count"`
		} `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, err
	}
	return raw.Summary.TotalCount, nil
}

func (c *HTTPClient) fetchShares(ctx context.Context, base string) (int, error) {
	params := url.Values{"fields": {"shares"}}
	resp, err := c.get(ctx, base, params)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var raw struct {
		Shares struct {
			Count int `json:"count"`
		} `json:"shares"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, err
	}
	return raw.Shares.Count, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				metrics.IncAPIRetry(req.URL.Path)
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
