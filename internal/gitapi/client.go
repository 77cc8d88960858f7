// Package gitapi is the client for the Git-hosting backend. The backend
// holds one checked-out branch per (user, repository) pair; every mutating
// call here can change state observed by other components, so callers must
// re-fetch rather than trust local copies after a checkout or clone.
package gitapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the backend Git service over HTTP JSON.
type Client struct {
	baseURL string
	userID  string
	token   string // GitHub access token, forwarded as a bearer header
	http    *http.Client
}

func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the GitHub access token forwarded to the backend for calls
// that reach through to GitHub (repo listing, clone).
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) UserID() string { return c.userID }

// doJSON issues a request and decodes the JSON response into out. A
// response that is not JSON is a transport failure, never parsed.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Propagate context cancellation unwrapped so callers can
		// recognize superseded requests.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{Op: method + " " + path, Status: resp.StatusCode}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}

// envelope is the common status wrapper on backend responses.
type envelope struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *envelope) check() error {
	if e.Error != "" {
		return &BackendError{Message: e.Error}
	}
	switch e.Status {
	case "error":
		return &BackendError{Message: e.Message}
	case "not_found":
		return fmt.Errorf("%s: %w", e.Message, ErrNotFound)
	}
	return nil
}

// ListRepos returns the remote repositories visible to the authenticated
// identity.
func (c *Client) ListRepos(ctx context.Context) (*RepoList, error) {
	var resp struct {
		envelope
		RepoList
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/repos", nil, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return &resp.RepoList, nil
}

// Status reports whether the repository has a working copy on the backend.
func (c *Client) Status(ctx context.Context, repoName string) (bool, error) {
	q := url.Values{"user_id": {c.userID}, "repo_name": {repoName}}
	var resp struct {
		Cloned bool `json:"cloned"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/git/status", q, nil, &resp); err != nil {
		return false, err
	}
	return resp.Cloned, nil
}

// Clone asks the backend to clone the repository. Returns the resulting
// clone state: Cloned on success or when the working copy already exists.
func (c *Client) Clone(ctx context.Context, cloneURL, repoName string) (CloneState, error) {
	body := map[string]string{
		"clone_url": cloneURL,
		"user_id":   c.userID,
		"repo_name": repoName,
	}
	var resp envelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/git/clone", nil, body, &resp); err != nil {
		return CloneError, err
	}
	switch resp.Status {
	case "success", "exists":
		return Cloned, nil
	default:
		return CloneError, &BackendError{Message: resp.Message}
	}
}

// Pull fetches and merges the latest changes for a cloned repository.
func (c *Client) Pull(ctx context.Context, repoName string) error {
	body := map[string]string{"user_id": c.userID, "repo_name": repoName}
	var resp envelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/git/pull", nil, body, &resp); err != nil {
		return err
	}
	return resp.check()
}

// DeleteRepo removes the working copy from the backend. Irreversible.
func (c *Client) DeleteRepo(ctx context.Context, repoName string) error {
	body := map[string]string{"user_id": c.userID, "repo_name": repoName}
	var resp envelope
	if err := c.doJSON(ctx, http.MethodDelete, "/api/git/repo", nil, body, &resp); err != nil {
		return err
	}
	return resp.check()
}

// ListBranches returns local and remote branches plus the branch the
// backend reports as checked out. The current-branch value is a snapshot:
// any later mutating call invalidates it.
func (c *Client) ListBranches(ctx context.Context, repoName string) (*BranchList, error) {
	q := url.Values{"user_id": {c.userID}, "repo_name": {repoName}}
	var resp struct {
		envelope
		BranchList
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/git/branches", q, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return &resp.BranchList, nil
}

// Checkout switches the backend's checked-out branch for this (user, repo)
// pair and returns the branch that is current afterwards. This mutates
// state shared by every component reading the repository.
func (c *Client) Checkout(ctx context.Context, repoName, branchName string) (string, error) {
	body := map[string]string{
		"user_id":     c.userID,
		"repo_name":   repoName,
		"branch_name": branchName,
	}
	var resp struct {
		envelope
		Current string `json:"current_branch"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/git/checkout", nil, body, &resp); err != nil {
		return "", err
	}
	if err := resp.check(); err != nil {
		return "", err
	}
	return resp.Current, nil
}

// ListFiles lists one directory level. An empty path means the repository
// root, not an error.
func (c *Client) ListFiles(ctx context.Context, repoName, path string) ([]FileEntry, error) {
	q := url.Values{"user_id": {c.userID}, "repo_name": {repoName}, "path": {path}}
	var resp struct {
		envelope
		Files []FileEntry `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/git/files", q, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// ReadFile reads one file. The read is keyed to the backend's currently
// checked-out branch; branch is forwarded when non-empty for backends that
// accept it, but callers must still checkout before reading.
func (c *Client) ReadFile(ctx context.Context, repoName, path, branch string) (*FileContent, error) {
	q := url.Values{"user_id": {c.userID}, "repo_name": {repoName}, "path": {path}}
	if branch != "" {
		q.Set("branch", branch)
	}
	var resp struct {
		envelope
		FileContent
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/git/file", q, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return &resp.FileContent, nil
}

// Search searches filenames and content. The backend rejects queries
// shorter than two characters; the search coordinator enforces that before
// a request is ever issued.
func (c *Client) Search(ctx context.Context, repoName, query string) ([]SearchResult, error) {
	q := url.Values{"user_id": {c.userID}, "repo_name": {repoName}, "query": {query}}
	var resp struct {
		envelope
		Results []SearchResult `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/git/search", q, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Commits returns up to maxCount commits from the current branch.
func (c *Client) Commits(ctx context.Context, repoName string, maxCount int) ([]Commit, error) {
	q := url.Values{"user_id": {c.userID}, "repo_name": {repoName}}
	if maxCount > 0 {
		q.Set("max_count", strconv.Itoa(maxCount))
	}
	var resp struct {
		envelope
		Commits []Commit `json:"commits"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/git/commits", q, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return resp.Commits, nil
}

func (c *Client) pagePath(repoName, branchName string) string {
	return "/api/pages/" + url.PathEscape(c.userID) + "/" + url.PathEscape(repoName) + "/" + url.PathEscape(branchName)
}

// GetPage fetches the notes page for a branch. ErrNotFound when no page
// exists yet.
func (c *Client) GetPage(ctx context.Context, repoName, branchName string) (*Page, error) {
	var resp struct {
		envelope
		Page *Page `json:"page"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.pagePath(repoName, branchName), nil, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return resp.Page, nil
}

// CreatePage creates the notes page for a branch. If the page already
// exists the backend returns it unchanged.
func (c *Client) CreatePage(ctx context.Context, repoName, branchName string) (*Page, error) {
	var resp struct {
		envelope
		Page *Page `json:"page"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.pagePath(repoName, branchName), nil, map[string]string{}, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "exists" {
		return resp.Page, nil
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return resp.Page, nil
}

// UpdatePage persists new title and content for a branch page.
func (c *Client) UpdatePage(ctx context.Context, repoName, branchName, title, content string) (*Page, error) {
	body := map[string]string{"title": title, "content": content}
	var resp struct {
		envelope
		Page *Page `json:"page"`
	}
	if err := c.doJSON(ctx, http.MethodPut, c.pagePath(repoName, branchName), nil, body, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return resp.Page, nil
}

// ListPages lists page summaries for a repository, most recently updated
// first.
func (c *Client) ListPages(ctx context.Context, repoName string) ([]PageSummary, error) {
	path := "/api/pages/" + url.PathEscape(c.userID) + "/" + url.PathEscape(repoName)
	var resp struct {
		envelope
		Pages []PageSummary `json:"pages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.check(); err != nil {
		return nil, err
	}
	return resp.Pages, nil
}
