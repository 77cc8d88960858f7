// Package search coordinates free-text repository search: queries are
// debounced, stale in-flight requests are cancelled, and only the newest
// request is ever allowed to populate results.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gition/gition/internal/gitapi"
)

// State is the coordinator's lifecycle for the current query.
type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateInFlight   State = "in_flight"
	StateSettled    State = "settled"
)

const (
	// minQueryLength is measured after trimming. Shorter queries never
	// reach the network and clear prior results immediately.
	minQueryLength  = 2
	defaultDebounce = 500 * time.Millisecond
)

// Update is delivered to the coordinator's listener whenever visible
// search state changes.
type Update struct {
	State   State
	Query   string
	Results []gitapi.SearchResult
	Err     error
}

// Coordinator debounces queries and serializes result delivery. Each armed
// request captures a generation token; a response whose token no longer
// matches is discarded even if it arrives successfully. Cancellation is by
// token and context, never by timestamp comparison.
type Coordinator struct {
	search   func(ctx context.Context, query string) ([]gitapi.SearchResult, error)
	onUpdate func(Update)
	debounce time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	state   State
	query   string
	results []gitapi.SearchResult
}

// NewCoordinator builds a coordinator searching repoName through client.
// onUpdate is invoked with every visible state change; it may be called
// from timer goroutines and must not call back into the coordinator.
func NewCoordinator(client *gitapi.Client, repoName string, onUpdate func(Update)) *Coordinator {
	return &Coordinator{
		search: func(ctx context.Context, query string) ([]gitapi.SearchResult, error) {
			return client.Search(ctx, repoName, query)
		},
		onUpdate: onUpdate,
		debounce: defaultDebounce,
		state:    StateIdle,
	}
}

// SetQuery is called on every keystroke. Any pending debounce timer and
// any in-flight request are cancelled before the new timer is armed.
func (c *Coordinator) SetQuery(query string) {
	trimmed := strings.TrimSpace(query)

	c.mu.Lock()
	c.cancelPendingLocked()
	c.gen++
	c.query = trimmed

	if len(trimmed) < minQueryLength {
		// Below the threshold visible results clear immediately; there
		// is nothing to wait for.
		c.results = nil
		c.state = StateIdle
		update := c.updateLocked()
		c.mu.Unlock()
		c.notify(update)
		return
	}

	gen := c.gen
	c.state = StateDebouncing
	c.timer = time.AfterFunc(c.debounce, func() {
		c.fire(gen, trimmed)
	})
	update := c.updateLocked()
	c.mu.Unlock()
	c.notify(update)
}

// Clear cancels all pending work and empties results.
func (c *Coordinator) Clear() {
	c.SetQuery("")
}

// Close releases timers and in-flight requests.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.gen++
	c.mu.Unlock()
}

// fire runs when the debounce timer for gen expires.
func (c *Coordinator) fire(gen uint64, query string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateInFlight
	update := c.updateLocked()
	c.mu.Unlock()
	c.notify(update)

	results, err := c.search(ctx, query)
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		// Superseded while in flight. The response must not populate
		// results no matter what it carried.
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.state = StateSettled
	if err != nil {
		if gitapi.IsCancelled(err) {
			c.mu.Unlock()
			return
		}
		c.results = nil
		update = c.updateLocked()
		update.Err = err
		c.mu.Unlock()
		c.notify(update)
		return
	}
	// Results are rebuilt wholesale; never merged with previous ones.
	c.results = results
	update = c.updateLocked()
	c.mu.Unlock()
	c.notify(update)
}

func (c *Coordinator) cancelPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) updateLocked() Update {
	return Update{State: c.state, Query: c.query, Results: c.results}
}

func (c *Coordinator) notify(u Update) {
	if c.onUpdate != nil {
		c.onUpdate(u)
	}
}

// Snapshot returns the current visible state.
func (c *Coordinator) Snapshot() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked()
}
