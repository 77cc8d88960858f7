package content

import (
	"context"

	"github.com/gition/gition/internal/gitapi"
	"github.com/gition/gition/internal/nav"
)

// Navigator walks the file tree one directory level at a time. Entering a
// directory issues exactly one listing call; there is no recursive
// prefetch.
type Navigator struct {
	client *gitapi.Client
}

func NewNavigator(client *gitapi.Client) *Navigator {
	return &Navigator{client: client}
}

// ListDirectory lists one level. An empty path addresses the repository
// root.
func (n *Navigator) ListDirectory(ctx context.Context, repoName, path string) ([]gitapi.FileEntry, error) {
	return n.client.ListFiles(ctx, repoName, nav.CleanPath(path))
}

// Up returns the listing of the parent directory, plus the parent path the
// caller should record. At the root there is no parent: ok is false and
// the caller should hand off to its close-browser signal instead.
func (n *Navigator) Up(ctx context.Context, repoName, path string) ([]gitapi.FileEntry, string, bool, error) {
	path = nav.CleanPath(path)
	if path == "" {
		return nil, "", false, nil
	}
	parent := nav.ParentPath(path)
	entries, err := n.client.ListFiles(ctx, repoName, parent)
	if err != nil {
		return nil, "", false, err
	}
	return entries, parent, true, nil
}
