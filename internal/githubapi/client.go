// Package githubapi is a thin client for the parts of the GitHub REST API
// the workspace shows alongside repository content: open issues and pull
// requests. No clone is required for either.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// Client calls the GitHub REST API, optionally with a personal token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Label is an issue label. Color is a 6-digit hex string without '#'.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type User struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

type Issue struct {
	ID        int64   `json:"id"`
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	State     string  `json:"state"`
	User      User    `json:"user"`
	Labels    []Label `json:"labels"`
	Comments  int     `json:"comments"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	HTMLURL   string  `json:"html_url"`
}

type BranchRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type PullRequest struct {
	ID             int64     `json:"id"`
	Number         int       `json:"number"`
	Title          string    `json:"title"`
	State          string    `json:"state"`
	User           User      `json:"user"`
	Head           BranchRef `json:"head"`
	Base           BranchRef `json:"base"`
	Draft          bool      `json:"draft"`
	MergeableState string    `json:"mergeable_state"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
	HTMLURL        string    `json:"html_url"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github: unexpected status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// validColor matches GitHub's label color format.
var validColor = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// filterLabels drops labels with malformed color codes rather than failing
// the whole listing over bad data.
func filterLabels(labels []Label) []Label {
	out := labels[:0]
	for _, l := range labels {
		if l.Name == "" {
			continue
		}
		if !validColor.MatchString(l.Color) {
			l.Color = "ededed"
		}
		out = append(out, l)
	}
	return out
}

// OpenIssues lists open issues for owner/repo, most recently updated
// first. Pull requests are excluded: GitHub reports them through the
// issues endpoint too, distinguished by a pull_request key.
func (c *Client) OpenIssues(ctx context.Context, owner, repo string) ([]Issue, error) {
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/issues"
	q := url.Values{
		"state":     {"open"},
		"per_page":  {"50"},
		"sort":      {"updated"},
		"direction": {"desc"},
	}

	var raw []struct {
		Issue
		PullRequest *json.RawMessage `json:"pull_request"`
	}
	if err := c.get(ctx, path, q, &raw); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raw))
	for _, item := range raw {
		if item.PullRequest != nil {
			continue
		}
		issue := item.Issue
		issue.Labels = filterLabels(issue.Labels)
		issues = append(issues, issue)
	}
	return issues, nil
}

// OpenPulls lists open pull requests for owner/repo, most recently updated
// first. Head SHAs are abbreviated to seven characters.
func (c *Client) OpenPulls(ctx context.Context, owner, repo string) ([]PullRequest, error) {
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/pulls"
	q := url.Values{
		"state":     {"open"},
		"per_page":  {"50"},
		"sort":      {"updated"},
		"direction": {"desc"},
	}

	var pulls []PullRequest
	if err := c.get(ctx, path, q, &pulls); err != nil {
		return nil, err
	}

	for i := range pulls {
		if len(pulls[i].Head.SHA) > 7 {
			pulls[i].Head.SHA = pulls[i].Head.SHA[:7]
		}
	}
	return pulls, nil
}
