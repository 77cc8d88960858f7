// Package nav derives navigation state from URL route parameters. The
// target is the single source of truth for which repository, branch, and
// path the workspace is viewing; every other component derives its inputs
// from it.
package nav

import (
	"net/url"
	"strings"
)

// Target identifies what the workspace is viewing. Branch empty means "use
// the default and redirect to make it explicit". Path empty at repository
// root means "resolve the README".
type Target struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

func (t Target) RepoRef() string {
	return t.Owner + "/" + t.Repo
}

// URLPath renders the target back to its canonical route.
func (t Target) URLPath() string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(url.PathEscape(t.Owner))
	b.WriteString("/")
	b.WriteString(url.PathEscape(t.Repo))
	if t.Branch != "" {
		b.WriteString("/")
		b.WriteString(url.PathEscape(t.Branch))
	}
	if t.Path != "" {
		for _, seg := range strings.Split(t.Path, "/") {
			b.WriteString("/")
			b.WriteString(url.PathEscape(seg))
		}
	}
	return b.String()
}

// Redirect returns the target the caller must navigate to instead, or ok
// false when the target is already canonical. A target with owner/repo but
// no branch redirects exactly once to the explicit fallback branch; if that
// branch later turns out not to exist, the failure is reported as a branch
// error, never as another redirect.
func Redirect(t Target, fallbackBranch string) (Target, bool) {
	if t.Owner == "" || t.Repo == "" || t.Branch != "" {
		return Target{}, false
	}
	t.Branch = fallbackBranch
	return t, true
}

// Parse builds a Target from decoded route parameters. The path is
// normalized: leading and trailing slashes stripped, empty segments
// dropped.
func Parse(owner, repo, branch, path string) Target {
	return Target{
		Owner:  owner,
		Repo:   repo,
		Branch: branch,
		Path:   CleanPath(path),
	}
}

// CleanPath normalizes a repository-relative path. Empty and "." segments
// are dropped; ".." resolves within the path and can never climb above
// the repository root. An empty result means repository root.
func CleanPath(p string) string {
	segs := strings.Split(p, "/")
	out := segs[:0]
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, "/")
}

// ParentPath strips the last path segment. Stripping the only segment
// yields the empty path, which addresses the repository root.
func ParentPath(p string) string {
	p = CleanPath(p)
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}
