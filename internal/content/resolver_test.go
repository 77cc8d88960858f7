package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gition/gition/internal/gitapi"
)

// fakeFiles serves /api/git/file and /api/git/files from an in-memory map
// and counts fetches per path.
type fakeFiles struct {
	files   map[string]fileEntry
	fetches map[string]int
}

type fileEntry struct {
	content string
	binary  bool
}

func newFakeFiles(files map[string]fileEntry) *fakeFiles {
	return &fakeFiles{files: files, fetches: map[string]int{}}
}

func (f *fakeFiles) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/git/file", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		f.fetches[path]++
		w.Header().Set("Content-Type", "application/json")
		entry, ok := f.files[path]
		if !ok {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "not_found",
				"message": "File not found: " + path,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"path":    path,
			"binary":  entry.binary,
			"size":    len(entry.content),
			"content": entry.content,
		})
	})
	mux.HandleFunc("/api/git/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"files":  []interface{}{},
		})
	})
	return mux
}

func newTestResolver(t *testing.T, f *fakeFiles) (*Resolver, func()) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	return NewResolver(gitapi.NewClient(srv.URL, "42")), srv.Close
}

func TestResolveExplicitPath(t *testing.T) {
	f := newFakeFiles(map[string]fileEntry{
		"docs/guide.md": {content: "# Guide"},
		"logo.png":      {binary: true},
	})
	r, done := newTestResolver(t, f)
	defer done()

	t.Run("text file", func(t *testing.T) {
		res, err := r.Resolve(context.Background(), "myrepo", "main", "docs/guide.md")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusOK || res.Content != "# Guide" {
			t.Errorf("got %+v, want success with content", res)
		}
	})

	t.Run("binary file", func(t *testing.T) {
		res, err := r.Resolve(context.Background(), "myrepo", "main", "logo.png")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusBinary {
			t.Errorf("status = %q, want %q", res.Status, StatusBinary)
		}
		if res.Message != "Binary file is not displayable" {
			t.Errorf("message = %q", res.Message)
		}
		if res.Content != "" {
			t.Error("binary result must not carry content")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		res, err := r.Resolve(context.Background(), "myrepo", "main", "nope.md")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusNotFound {
			t.Errorf("status = %q, want %q", res.Status, StatusNotFound)
		}
	})
}

func TestReadmeDiscovery(t *testing.T) {
	t.Run("first candidate short-circuits", func(t *testing.T) {
		f := newFakeFiles(map[string]fileEntry{
			"README.md": {content: "# Hello"},
			"readme.md": {content: "# lower"},
		})
		r, done := newTestResolver(t, f)
		defer done()

		res, err := r.Resolve(context.Background(), "myrepo", "main", "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusOK || res.Path != "README.md" {
			t.Fatalf("got %+v, want README.md", res)
		}
		if f.fetches["readme.md"] != 0 {
			t.Error("later candidates must not be fetched after a hit")
		}
	})

	t.Run("skips missing empty and binary candidates", func(t *testing.T) {
		f := newFakeFiles(map[string]fileEntry{
			// README.md missing entirely; readme.md whitespace only;
			// README.MD binary; Readme.md is the one that hits.
			"readme.md": {content: "   \n\t"},
			"README.MD": {binary: true},
			"Readme.md": {content: "# At last"},
		})
		r, done := newTestResolver(t, f)
		defer done()

		res, err := r.Resolve(context.Background(), "myrepo", "main", "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusOK || res.Path != "Readme.md" {
			t.Fatalf("got %+v, want Readme.md", res)
		}
		for _, p := range []string{"README.md", "readme.md", "README.MD", "Readme.md"} {
			if f.fetches[p] != 1 {
				t.Errorf("fetches[%s] = %d, want 1", p, f.fetches[p])
			}
		}
	})

	t.Run("exhaustion is a terminal non-error state", func(t *testing.T) {
		f := newFakeFiles(nil)
		r, done := newTestResolver(t, f)
		defer done()

		res, err := r.Resolve(context.Background(), "myrepo", "main", "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusNoReadme {
			t.Errorf("status = %q, want %q", res.Status, StatusNoReadme)
		}
	})

	t.Run("error envelope per candidate moves on", func(t *testing.T) {
		// Some backends report a missing file as an error envelope
		// wrapping the OS failure instead of a not_found status.
		files := map[string]string{"Readme.md": "# Found"}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Query().Get("path")
			w.Header().Set("Content-Type", "application/json")
			text, ok := files[path]
			if !ok {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"status":  "error",
					"message": "[Errno 2] No such file or directory: '" + path + "'",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "success",
				"path":    path,
				"binary":  false,
				"content": text,
			})
		}))
		defer srv.Close()

		r := NewResolver(gitapi.NewClient(srv.URL, "42"))
		res, err := r.Resolve(context.Background(), "myrepo", "main", "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusOK || res.Path != "Readme.md" {
			t.Fatalf("got %+v, want Readme.md past the failed candidates", res)
		}

		// With every candidate failing this way discovery still settles
		// in the terminal non-error state.
		delete(files, "Readme.md")
		res, err = r.Resolve(context.Background(), "myrepo", "main", "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.Status != StatusNoReadme {
			t.Errorf("status = %q, want %q", res.Status, StatusNoReadme)
		}
	})

	t.Run("transport failure aborts discovery", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		r := NewResolver(gitapi.NewClient(srv.URL, "42"))
		if _, err := r.Resolve(context.Background(), "myrepo", "main", ""); err == nil {
			t.Fatal("expected transport error to abort discovery")
		}
	})
}
