// Package autosave debounces edits to a branch's notes page and serializes
// saves so out-of-order network replies can never overwrite newer local
// edits.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/gition/gition/internal/gitapi"
)

// Status is the save lifecycle surfaced inline next to the editor.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSaving  Status = "saving"
	StatusSaved   Status = "saved"
	StatusError   Status = "error"
)

const defaultDebounce = 1500 * time.Millisecond

// Journal records the last successfully persisted values outside the
// process, so the unchanged-value guard survives restarts. Implementations
// may be nil-free no-ops.
type Journal interface {
	Store(ctx context.Context, title, content string) error
}

// Coordinator owns the save pipeline for one (repository, branch) page.
//
// Only one save is in flight at a time. Edits arriving during a save are
// queued and coalesced into at most one follow-up save. A save whose
// values equal the last successfully persisted pair is skipped entirely:
// no network call, no status flicker.
type Coordinator struct {
	save     func(ctx context.Context, title, content string) (*gitapi.Page, error)
	journal  Journal
	onStatus func(Status, error)
	debounce time.Duration

	mu           sync.Mutex
	timer        *time.Timer
	inFlight     bool
	queued       bool
	editTitle    string
	editContent  string
	savedTitle   string
	savedContent string
	status       Status
}

// NewCoordinator builds a coordinator saving through client to the page
// for (repoName, branchName). onStatus may be nil.
func NewCoordinator(client *gitapi.Client, repoName, branchName string, onStatus func(Status, error)) *Coordinator {
	return &Coordinator{
		save: func(ctx context.Context, title, content string) (*gitapi.Page, error) {
			return client.UpdatePage(ctx, repoName, branchName, title, content)
		},
		onStatus: onStatus,
		debounce: defaultDebounce,
		status:   StatusIdle,
	}
}

// SetJournal attaches persistence for the last saved values.
func (c *Coordinator) SetJournal(j Journal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal = j
}

// Prime seeds the last persisted values from an already loaded page. Must
// be called before the first ScheduleSave; edits made before Prime would
// otherwise be compared against empty strings.
func (c *Coordinator) Prime(page *gitapi.Page) {
	c.PrimeValues(page.Title, page.Content)
}

// PrimeValues seeds the last persisted pair directly. Used when the pair
// is restored from a journal rather than a fetched page, for example when
// the page read lags behind a save confirmed before a restart.
func (c *Coordinator) PrimeValues(title, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.savedTitle = title
	c.savedContent = content
	c.editTitle = title
	c.editContent = content
}

// ScheduleSave records an edit to either field and arms the trailing
// debounce timer. Rapid edits coalesce: only the most recent timer fires.
func (c *Coordinator) ScheduleSave(title, content string) {
	c.mu.Lock()
	c.editTitle = title
	c.editContent = content
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.flush)
	c.status = StatusPending
	c.mu.Unlock()
	c.notify(StatusPending, nil)
}

// SaveNow flushes any pending debounce timer and issues the save
// immediately, still subject to the unchanged-value guard.
func (c *Coordinator) SaveNow() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.flush()
}

// Status returns the current save status.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) flush() {
	c.mu.Lock()
	c.timer = nil

	if c.inFlight {
		// A save is already running; remember to re-check when it
		// finishes rather than issuing a concurrent one.
		c.queued = true
		c.mu.Unlock()
		return
	}

	title, content := c.editTitle, c.editContent
	if title == c.savedTitle && content == c.savedContent {
		// Nothing changed since the last successful save. Skip the
		// network call entirely.
		if c.status == StatusPending {
			c.status = StatusIdle
		}
		status := c.status
		c.mu.Unlock()
		c.notify(status, nil)
		return
	}

	c.inFlight = true
	c.status = StatusSaving
	c.mu.Unlock()
	c.notify(StatusSaving, nil)

	go c.run(title, content)
}

func (c *Coordinator) run(title, content string) {
	_, err := c.save(context.Background(), title, content)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		// The user's in-progress text stays authoritative: no retry,
		// no rollback, just an inline error. Queued edits wait for the
		// next user action.
		c.status = StatusError
		c.queued = false
		c.mu.Unlock()
		c.notify(StatusError, err)
		return
	}

	c.savedTitle = title
	c.savedContent = content
	journal := c.journal
	queued := c.queued
	c.queued = false
	c.status = StatusSaved
	c.mu.Unlock()

	if journal != nil {
		// Journal failures do not affect save status; the backend is
		// the source of truth.
		_ = journal.Store(context.Background(), title, content)
	}

	c.notify(StatusSaved, nil)

	if queued {
		c.flush()
	}
}

func (c *Coordinator) notify(s Status, err error) {
	if c.onStatus != nil {
		c.onStatus(s, err)
	}
}
