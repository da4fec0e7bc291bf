package fbclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// helper to create client with injected http client
func newTestClient(ts *httptest.Server) *HTTPClient {
	c := NewHTTPClient("token", "123", "v23.0")
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	c.httpClient = ts.Client()
	c.baseURL = ts.URL
	return c
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/test", nil)
	resp, err := c.doWithRetry(context.Background(), req)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
}

func TestListPostsPagination(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("after") == "p2" {
			_, _ = w.Write([]byte(`{"data":[{"id":"3","message":"c","created_time":"2026-01-03T00:00:00+0000"}]}`))
			return
		}
		next := ts.URL + "/123/posts?after=p2"
		_, _ = w.Write([]byte(`{"data":[
			{"id":"1","message":"a","created_time":"2026-01-01T00:00:00+0000","permalink_url":"https://fb.com/1"},
			{"id":"2","message":"b","created_time":"2026-01-02T00:00:00+0000"}],
			"paging":{"next":"` + next + `"}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	posts, err := c.ListPosts(context.Background(), time.Now().AddDate(0, 0, -7), time.Now(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts across pages, got %d", len(posts))
	}
	if posts[0].ID != "1" || posts[2].ID != "3" {
		t.Fatalf("posts: %+v", posts)
	}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !posts[0].CreatedTime.Equal(want) {
		t.Fatalf("created time: %v", posts[0].CreatedTime)
	}
}

func TestGetPostCountersMerges(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/p1/insights":
			_, _ = w.Write([]byte(`{"data":[
				{"name":"post_impressions_unique","values":[{"value":1000}]},
				{"name":"post_clicks","values":[{"value":30}]},
				{"name":"post_reactions_like_total","values":[{"value":20}]}]}`))
		case r.URL.Path == "/p1/reactions":
			_, _ = w.Write([]byte(`{"summary":{"total_count":20}}`))
		case r.URL.Path == "/p1/comments":
			_, _ = w.Write([]byte(`{"summary":{"total_count":5}}`))
		default: // shares via post fields
			_, _ = w.Write([]byte(`{"shares":{"count":10}}`))
		}
	}))
	defer ts.Close()

	c := newTestClient(ts)
	got, err := c.GetPostCounters(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Reach != 1000 || got.Clicks != 30 || got.ReactionsLike != 20 || got.Likes != 20 || got.Comments != 5 || got.Shares != 10 {
		t.Fatalf("counters: %+v", got)
	}
}

func TestGetPageInfoError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Unsupported get request","code":100}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if _, err := c.GetPageInfo(context.Background()); err == nil {
		t.Fatal("expected error from api error payload")
	}
}
