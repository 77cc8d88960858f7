// Package branch resolves which branch a navigation should read from and
// keeps the backend's checked-out branch aligned with it.
//
// The checked-out branch is a single mutable resource per (user,
// repository) shared by every tab and component reading that repository.
// Nothing here caches it: after any checkout the branch list is re-fetched
// and the backend's answer wins.
package branch

import (
	"context"
	"fmt"

	"github.com/gition/gition/internal/gitapi"
)

// DefaultFallback is the conventional branch name tried when the backend
// reports no current branch. The choice is a heuristic, not a guarantee:
// repositories may use a different default, which is why it is
// configurable on the Resolver.
const DefaultFallback = "main"

// Select picks the branch to show on load: the branch flagged current if
// the backend reports one, else a branch named like the fallback, else the
// first branch returned. Returns false when the list is empty.
func Select(branches []gitapi.Branch, fallback string) (gitapi.Branch, bool) {
	if len(branches) == 0 {
		return gitapi.Branch{}, false
	}
	if fallback == "" {
		fallback = DefaultFallback
	}
	for _, b := range branches {
		if b.IsCurrent {
			return b, true
		}
	}
	for _, b := range branches {
		if b.Name == fallback {
			return b, true
		}
	}
	return branches[0], true
}

// Resolver fetches branch sets and issues checkouts against the backend.
type Resolver struct {
	client   *gitapi.Client
	Fallback string
}

func NewResolver(client *gitapi.Client) *Resolver {
	return &Resolver{client: client, Fallback: DefaultFallback}
}

// List fetches the branch set for a repository. The current-branch flag in
// the result is a snapshot taken by the backend at fetch time.
func (r *Resolver) List(ctx context.Context, repoName string) (*gitapi.BranchList, error) {
	return r.client.ListBranches(ctx, repoName)
}

// EnsureCheckout makes branchName the backend's checked-out branch and
// re-fetches the branch list so callers observe the state the backend
// actually ended up in, not what this process assumed.
//
// A failed checkout is returned as-is: the caller must surface it and keep
// its previous selection. Falling back to a different branch here would
// desynchronize the user's mental model from the backend.
func (r *Resolver) EnsureCheckout(ctx context.Context, repoName, branchName string) (*gitapi.BranchList, error) {
	if _, err := r.client.Checkout(ctx, repoName, branchName); err != nil {
		return nil, err
	}

	// The checkout reply names a current branch, but the refetch is what
	// callers trust: another tab may have raced us in between.
	list, err := r.client.ListBranches(ctx, repoName)
	if err != nil {
		return nil, fmt.Errorf("checkout succeeded but branch refetch failed: %w", err)
	}
	return list, nil
}
