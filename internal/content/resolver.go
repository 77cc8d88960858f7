// Package content resolves what the workspace displays for a navigation
// target: an explicit file, a discovered README, or a terminal "nothing to
// show" state.
package content

import (
	"context"
	"errors"
	"strings"

	"github.com/gition/gition/internal/gitapi"
)

// readmeCandidates is the fixed README discovery order. Candidates are
// tried one fetch at a time and discovery short-circuits on the first
// non-empty, non-binary success, so later names are never fetched once one
// hits.
var readmeCandidates = []string{"README.md", "readme.md", "README.MD", "Readme.md"}

// Status classifies a resolution outcome.
type Status string

const (
	// StatusOK means Content holds displayable text.
	StatusOK Status = "success"
	// StatusBinary means the file exists but is not displayable as text.
	StatusBinary Status = "binary"
	// StatusNoReadme is the terminal non-error state when README
	// discovery exhausts every candidate.
	StatusNoReadme Status = "no_readme"
	// StatusNotFound means an explicitly requested path does not exist.
	// Unlike a missing README this is user-visible.
	StatusNotFound Status = "not_found"
	// StatusError covers backend and transport failures.
	StatusError Status = "error"
)

// Result is what a single resolution produced. Results are created per
// fetch and discarded on the next navigation; they are never cached across
// branch switches because the branch is not part of their identity.
type Result struct {
	Status  Status
	Path    string
	Content string
	Message string
}

// Resolver fetches file content through the backend client.
type Resolver struct {
	client *gitapi.Client
}

func NewResolver(client *gitapi.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve fetches the content for (repo, branch, path). An empty path
// means repository root and triggers README discovery. The caller is
// responsible for having checked out branch first; the branch argument is
// forwarded for backends that accept it.
func (r *Resolver) Resolve(ctx context.Context, repoName, branchName, path string) (*Result, error) {
	if path == "" {
		return r.discoverReadme(ctx, repoName, branchName)
	}

	fc, err := r.client.ReadFile(ctx, repoName, path, branchName)
	if err != nil {
		if errors.Is(err, gitapi.ErrNotFound) {
			return &Result{Status: StatusNotFound, Path: path, Message: "File not found: " + path}, nil
		}
		return nil, err
	}
	if fc.Binary {
		return &Result{Status: StatusBinary, Path: path, Message: "Binary file is not displayable"}, nil
	}
	return &Result{Status: StatusOK, Path: path, Content: fc.Content}, nil
}

// discoverReadme walks the candidate list in order. Transport failures
// abort discovery; a candidate that is missing, unreadable, empty, or
// binary moves on to the next one.
func (r *Resolver) discoverReadme(ctx context.Context, repoName, branchName string) (*Result, error) {
	for _, candidate := range readmeCandidates {
		fc, err := r.client.ReadFile(ctx, repoName, candidate, branchName)
		if err != nil {
			if gitapi.IsCancelled(err) {
				return nil, err
			}
			// A missing candidate comes back as not_found from some
			// backends and as a plain error envelope wrapping the
			// underlying read failure from others. Either way this
			// candidate failed; only transport failures abort the walk.
			var be *gitapi.BackendError
			if errors.Is(err, gitapi.ErrNotFound) || errors.As(err, &be) {
				continue
			}
			return nil, err
		}
		if fc.Binary || strings.TrimSpace(fc.Content) == "" {
			continue
		}
		return &Result{Status: StatusOK, Path: candidate, Content: fc.Content}, nil
	}
	return &Result{Status: StatusNoReadme, Message: "This repository has no README"}, nil
}
