package gitapi

// Repository is one entry from the backend's repository listing.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	SSHURL        string `json:"ssh_url"`
	Language      string `json:"language"`
	Stars         int    `json:"stargazers_count"`
	UpdatedAt     string `json:"updated_at"`
	DefaultBranch string `json:"default_branch"`
}

// RepoList is the /api/repos envelope.
type RepoList struct {
	Repos   []Repository `json:"repos"`
	Total   int          `json:"total"`
	Public  int          `json:"public"`
	Private int          `json:"private"`
}

// CloneState tracks whether a working copy exists on the backend.
type CloneState string

const (
	CloneUnknown CloneState = "unknown"
	Cloned       CloneState = "cloned"
	Cloning      CloneState = "cloning"
	CloneError   CloneState = "error"
)

// BranchKind distinguishes local branches from remote-only ones.
type BranchKind string

const (
	BranchLocal  BranchKind = "local"
	BranchRemote BranchKind = "remote"
)

// Branch is one entry from the backend's branch listing. IsCurrent is a
// snapshot taken at fetch time; another tab or request can change the
// checked-out branch between fetches.
type Branch struct {
	Name          string     `json:"name"`
	Kind          BranchKind `json:"type"`
	IsCurrent     bool       `json:"is_current"`
	CommitSHA     string     `json:"commit_sha"`
	CommitMessage string     `json:"commit_message"`
}

// BranchList is the /api/git/branches envelope.
type BranchList struct {
	Current  string   `json:"current_branch"`
	Total    int      `json:"total"`
	Branches []Branch `json:"branches"`
}

// FileEntry is one entry from a directory listing. Size is nil for
// directories.
type FileEntry struct {
	Name string `json:"name"`
	Type string `json:"type"` // "file" | "directory"
	Size *int64 `json:"size"`
	Path string `json:"path"`
}

// FileContent is the /api/git/file envelope. Content is empty when the
// backend flags the file as binary; the flag is authoritative and raw
// bytes are never returned.
type FileContent struct {
	Path    string `json:"path"`
	Binary  bool   `json:"binary"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

// SearchResult is one match from the backend search. Line and Context are
// only set for content matches.
type SearchResult struct {
	Type    string `json:"type"` // "filename" | "content"
	Path    string `json:"path"`
	Name    string `json:"name"`
	Match   string `json:"match"`
	Line    int    `json:"line"`
	Context string `json:"context"`
}

// Commit is one entry from the commit history listing.
type Commit struct {
	SHA         string      `json:"sha"`
	FullSHA     string      `json:"full_sha"`
	Message     string      `json:"message"`
	Author      string      `json:"author"`
	AuthorEmail string      `json:"author_email"`
	Date        string      `json:"date"`
	Stats       CommitStats `json:"stats"`
}

type CommitStats struct {
	Files      int `json:"files"`
	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
}

// Page is the per-branch notes document stored by the backend. One exists
// per (repository, branch); it is created on first visit and never deleted
// by this client.
type Page struct {
	ID         string `json:"id"`
	BranchName string `json:"branch_name"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// PageSummary is one entry from the page listing (no content).
type PageSummary struct {
	ID         string `json:"id"`
	BranchName string `json:"branch_name"`
	Title      string `json:"title"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}
