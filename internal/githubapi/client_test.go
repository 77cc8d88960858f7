package githubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewClient("")
	c.SetBaseURL(srv.URL)
	return c, srv.Close
}

func TestOpenIssuesFiltersPullRequests(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/alice/myrepo/issues" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("state") != "open" || q.Get("sort") != "updated" || q.Get("direction") != "desc" || q.Get("per_page") != "50" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "number": 10, "title": "real issue"},
			{
				"id": 2, "number": 11, "title": "actually a PR",
				"pull_request": map[string]string{"url": "https://example.com/pr"},
			},
			{"id": 3, "number": 12, "title": "another issue"},
		})
	})
	defer done()

	issues, err := c.OpenIssues(context.Background(), "alice", "myrepo")
	if err != nil {
		t.Fatalf("OpenIssues failed: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2 (pull requests excluded)", len(issues))
	}
	if issues[0].Number != 10 || issues[1].Number != 12 {
		t.Errorf("issue numbers = %d, %d", issues[0].Number, issues[1].Number)
	}
}

func TestOpenIssuesLabelHygiene(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"id": 1, "number": 10, "title": "issue",
				"labels": []map[string]string{
					{"name": "bug", "color": "d73a4a"},
					{"name": "", "color": "ffffff"},
					{"name": "oddly-colored", "color": "#zzz"},
				},
			},
		})
	})
	defer done()

	issues, err := c.OpenIssues(context.Background(), "alice", "myrepo")
	if err != nil {
		t.Fatalf("OpenIssues failed: %v", err)
	}
	labels := issues[0].Labels
	if len(labels) != 2 {
		t.Fatalf("labels = %+v, want the unnamed one dropped", labels)
	}
	if labels[0].Color != "d73a4a" {
		t.Errorf("valid color rewritten: %q", labels[0].Color)
	}
	if labels[1].Color != "ededed" {
		t.Errorf("invalid color = %q, want the neutral default", labels[1].Color)
	}
}

func TestOpenPullsAbbreviatesSHA(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/alice/myrepo/pulls" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"id": 1, "number": 5, "title": "a change",
				"head": map[string]string{"ref": "feature-x", "sha": "0123456789abcdef0123456789abcdef01234567"},
				"base": map[string]string{"ref": "main", "sha": "89abcdef"},
			},
			{
				"id": 2, "number": 6, "title": "short sha untouched",
				"head": map[string]string{"ref": "tiny", "sha": "abc"},
			},
		})
	})
	defer done()

	pulls, err := c.OpenPulls(context.Background(), "alice", "myrepo")
	if err != nil {
		t.Fatalf("OpenPulls failed: %v", err)
	}
	if pulls[0].Head.SHA != "0123456" {
		t.Errorf("head sha = %q, want 7 characters", pulls[0].Head.SHA)
	}
	if pulls[1].Head.SHA != "abc" {
		t.Errorf("short sha = %q, must pass through", pulls[1].Head.SHA)
	}
}

func TestNonOKStatus(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusForbidden)
	})
	defer done()

	if _, err := c.OpenIssues(context.Background(), "alice", "myrepo"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestAuthHeaderForwarded(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]map[string]interface{}{})
	}))
	defer srv.Close()

	c := NewClient("tok-456")
	c.SetBaseURL(srv.URL)
	if _, err := c.OpenIssues(context.Background(), "alice", "myrepo"); err != nil {
		t.Fatalf("OpenIssues failed: %v", err)
	}
	if gotAuth != "Bearer tok-456" {
		t.Errorf("auth header = %q", gotAuth)
	}
}
