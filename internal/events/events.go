package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type EventType string

const (
	// Workspace events
	EventNavigationChanged EventType = "navigation.changed"
	EventCheckoutCompleted EventType = "checkout.completed"

	// Repository events
	EventRepoCloned EventType = "repo.cloned"

	// Page events
	EventPageSaved EventType = "page.saved"
)

type Event struct {
	Type      EventType   `json:"type"`
	Repo      string      `json:"repo,omitempty"`
	Branch    string      `json:"branch,omitempty"`
	Path      string      `json:"path,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Bus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	subs   []*nats.Subscription
	active bool
}

func NewBus(natsURL string) (*Bus, error) {
	if natsURL == "" {
		// No NATS configured, return inactive bus
		return &Bus{active: false}, nil
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	bus := &Bus{
		nc:     nc,
		js:     js,
		active: true,
	}

	if err := bus.createStreams(); err != nil {
		nc.Close()
		return nil, err
	}

	return bus, nil
}

func (b *Bus) createStreams() error {
	streams := []struct {
		name     string
		subjects []string
	}{
		{"GITION_WORKSPACE", []string{"gition.workspace.>"}},
		{"GITION_REPOS", []string{"gition.repo.>"}},
		{"GITION_PAGES", []string{"gition.page.>"}},
	}

	for _, s := range streams {
		_, err := b.js.AddStream(&nats.StreamConfig{
			Name:      s.name,
			Subjects:  s.subjects,
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour, // Keep events for 24 hours
			Storage:   nats.FileStorage,
		})
		if err != nil && err != nats.ErrStreamNameAlreadyInUse {
			return fmt.Errorf("failed to create stream %s: %w", s.name, err)
		}
	}

	return nil
}

func (b *Bus) Publish(event Event) error {
	if !b.active {
		return nil // Silently ignore if NATS not configured
	}

	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := b.subjectFor(event)
	_, err = b.js.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (b *Bus) subjectFor(event Event) string {
	// Subject format: gition.<area>.<repo>.<branch>.<event>
	// Repo format is "owner/name" which we encode as "owner.name" for NATS subjects
	repoKey := strings.ReplaceAll(event.Repo, "/", ".")
	switch event.Type {
	case EventNavigationChanged, EventCheckoutCompleted:
		return fmt.Sprintf("gition.workspace.%s.%s.%s", repoKey, event.Branch, event.Type)
	case EventRepoCloned:
		return fmt.Sprintf("gition.repo.%s.%s", repoKey, event.Type)
	case EventPageSaved:
		return fmt.Sprintf("gition.page.%s.%s.%s", repoKey, event.Branch, event.Type)
	default:
		return fmt.Sprintf("gition.unknown.%s", event.Type)
	}
}

// Subscribe to events matching a subject pattern. Returns unsubscribe function.
func (b *Bus) Subscribe(subject string, handler func(Event)) (func(), error) {
	if !b.active {
		return func() {}, nil
	}

	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return // Skip malformed events
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	// Track subscription for cleanup on Close()
	b.subs = append(b.subs, sub)

	return func() { sub.Unsubscribe() }, nil
}

// SubscribeBranch subscribes to all workspace events for a specific
// repo/branch. repoRef should be "owner/repo".
func (b *Bus) SubscribeBranch(repoRef, branchName string, handler func(Event)) (func(), error) {
	repoKey := strings.ReplaceAll(repoRef, "/", ".")
	return b.Subscribe(fmt.Sprintf("gition.workspace.%s.%s.>", repoKey, branchName), handler)
}

func (b *Bus) Close() error {
	if !b.active {
		return nil
	}

	for _, sub := range b.subs {
		sub.Unsubscribe()
	}

	b.nc.Close()
	return nil
}

func (b *Bus) IsActive() bool {
	return b.active
}
