package events

import (
	"testing"
)

func TestSubjectFor(t *testing.T) {
	b := &Bus{active: true}

	tests := []struct {
		event Event
		want  string
	}{
		// Workspace events
		{
			Event{Type: EventNavigationChanged, Repo: "alice/myrepo", Branch: "feature-x"},
			"gition.workspace.alice.myrepo.feature-x.navigation.changed",
		},
		{
			Event{Type: EventCheckoutCompleted, Repo: "org/project", Branch: "fix-123"},
			"gition.workspace.org.project.fix-123.checkout.completed",
		},

		// Repository events
		{
			Event{Type: EventRepoCloned, Repo: "alice/myrepo"},
			"gition.repo.alice.myrepo.repo.cloned",
		},

		// Page events
		{
			Event{Type: EventPageSaved, Repo: "alice/myrepo", Branch: "feature-x"},
			"gition.page.alice.myrepo.feature-x.page.saved",
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.event.Type), func(t *testing.T) {
			got := b.subjectFor(tc.event)
			if got != tc.want {
				t.Errorf("subjectFor(%+v) = %q, want %q", tc.event, got, tc.want)
			}
		})
	}
}

func TestInactiveBus(t *testing.T) {
	b, err := NewBus("")
	if err != nil {
		t.Fatalf("NewBus(\"\") failed: %v", err)
	}
	if b.IsActive() {
		t.Error("bus without a NATS URL should be inactive")
	}
	if err := b.Publish(Event{Type: EventRepoCloned, Repo: "a/b"}); err != nil {
		t.Errorf("publish on inactive bus should be a no-op, got %v", err)
	}
	unsub, err := b.Subscribe("gition.repo.>", func(Event) {})
	if err != nil {
		t.Errorf("subscribe on inactive bus should be a no-op, got %v", err)
	}
	unsub()
	if err := b.Close(); err != nil {
		t.Errorf("close on inactive bus should be a no-op, got %v", err)
	}
}
