package gitapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func jsonHandler(v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}

func TestQueryEncoding(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		jsonHandler(map[string]interface{}{"status": "success", "results": []interface{}{}})(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42")
	if _, err := c.Search(context.Background(), "my repo", "config & tests"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// Spaces and ampersands must be percent-encoded, never passed raw.
	want := "query=config+%26+tests&repo_name=my+repo&user_id=42"
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

func TestPagePathEscaping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		jsonHandler(map[string]interface{}{"status": "success", "page": map[string]interface{}{"id": "p1"}})(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42")
	if _, err := c.GetPage(context.Background(), "myrepo", "feature/login"); err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if gotPath != "/api/pages/42/myrepo/feature%2Flogin" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>gateway timeout page</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42")
	_, err := c.ListRepos(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want NetworkError for a non-JSON body", err)
	}
}

func TestNon2xxResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42")
	_, err := c.ListRepos(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if ne.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", ne.Status)
	}
}

func TestEnvelopeMapping(t *testing.T) {
	t.Run("error status becomes BackendError", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(map[string]interface{}{
			"status":  "error",
			"message": "repository is locked",
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "42")
		err := c.Pull(context.Background(), "myrepo")
		var be *BackendError
		if !errors.As(err, &be) {
			t.Fatalf("err = %v, want BackendError", err)
		}
		if be.Message != "repository is locked" {
			t.Errorf("message = %q", be.Message)
		}
	})

	t.Run("not_found status wraps ErrNotFound", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(map[string]interface{}{
			"status":  "not_found",
			"message": "File not found: nope.md",
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "42")
		_, err := c.ReadFile(context.Background(), "myrepo", "nope.md", "main")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestCloneStates(t *testing.T) {
	tests := []struct {
		status    string
		wantState CloneState
		wantErr   bool
	}{
		{"success", Cloned, false},
		{"exists", Cloned, false},
		{"error", CloneError, true},
	}

	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(map[string]interface{}{
				"status":  tc.status,
				"message": "detail",
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "42")
			state, err := c.Clone(context.Background(), "https://example.com/r.git", "myrepo")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if state != tc.wantState {
				t.Errorf("state = %q, want %q", state, tc.wantState)
			}
		})
	}
}

func TestCancelledRequest(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	c := NewClient(srv.URL, "42")
	_, err := c.ListRepos(ctx)
	if !IsCancelled(err) {
		t.Errorf("err = %v, want a cancellation", err)
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		jsonHandler(map[string]interface{}{"status": "success", "repos": []interface{}{}})(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42")
	c.SetToken("tok-123")
	if _, err := c.ListRepos(context.Background()); err != nil {
		t.Fatalf("ListRepos failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
}
