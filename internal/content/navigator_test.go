package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gition/gition/internal/gitapi"
)

func newListingServer(t *testing.T, listings map[string][]string, paths *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		*paths = append(*paths, path)
		var files []map[string]interface{}
		for _, name := range listings[path] {
			files = append(files, map[string]interface{}{
				"name": name,
				"type": "file",
				"path": name,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"files":  files,
		})
	}))
}

func TestListDirectory(t *testing.T) {
	var paths []string
	srv := newListingServer(t, map[string][]string{
		"":     {"README.md", "docs"},
		"docs": {"guide.md"},
	}, &paths)
	defer srv.Close()

	n := NewNavigator(gitapi.NewClient(srv.URL, "42"))

	entries, err := n.ListDirectory(context.Background(), "myrepo", "/docs/")
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "guide.md" {
		t.Errorf("entries = %+v", entries)
	}
	// One level per call, with the path normalized first.
	if len(paths) != 1 || paths[0] != "docs" {
		t.Errorf("requested paths = %v, want [docs]", paths)
	}
}

func TestUp(t *testing.T) {
	var paths []string
	srv := newListingServer(t, map[string][]string{
		"":    {"a"},
		"a":   {"b"},
		"a/b": {"c.md"},
	}, &paths)
	defer srv.Close()

	n := NewNavigator(gitapi.NewClient(srv.URL, "42"))

	t.Run("nested path lists the parent", func(t *testing.T) {
		entries, parent, ok, err := n.Up(context.Background(), "myrepo", "a/b")
		if err != nil {
			t.Fatalf("Up failed: %v", err)
		}
		if !ok {
			t.Fatal("expected ok at a nested path")
		}
		if parent != "a" {
			t.Errorf("parent = %q, want a", parent)
		}
		if len(entries) != 1 || entries[0].Name != "b" {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("single segment goes to the root", func(t *testing.T) {
		_, parent, ok, err := n.Up(context.Background(), "myrepo", "a")
		if err != nil {
			t.Fatalf("Up failed: %v", err)
		}
		if !ok || parent != "" {
			t.Errorf("ok=%v parent=%q, want ok at root", ok, parent)
		}
	})

	t.Run("at the root there is no parent", func(t *testing.T) {
		before := len(paths)
		_, _, ok, err := n.Up(context.Background(), "myrepo", "")
		if err != nil {
			t.Fatalf("Up failed: %v", err)
		}
		if ok {
			t.Error("Up at root must report ok=false")
		}
		if len(paths) != before {
			t.Error("Up at root must not issue a listing call")
		}
	})
}
