// Package workspace ties navigation state to the backend: a navigation
// target comes in, the target branch is checked out, content is resolved,
// and the resulting state is published to listeners.
//
// Every async effect captures the session generation at call time and its
// result is discarded if the generation has moved on by the time it lands.
// That is the only ordering guarantee the backend offers us: responses may
// arrive in any order, but only the most recently requested target may
// ever reach the screen.
package workspace

import (
	"context"
	"sync"

	"github.com/gition/gition/internal/branch"
	"github.com/gition/gition/internal/content"
	"github.com/gition/gition/internal/events"
	"github.com/gition/gition/internal/gitapi"
	"github.com/gition/gition/internal/githubapi"
	"github.com/gition/gition/internal/nav"
)

// OpState is the loading/error slot for one async operation. Each
// operation gets its own slot; there is no global spinner.
type OpState struct {
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

// State is the session's published view state.
type State struct {
	Target         nav.Target              `json:"target"`
	Branches       []gitapi.Branch         `json:"branches"`
	SelectedBranch string                  `json:"selected_branch"`
	Content        *content.Result         `json:"content"`
	Page           *gitapi.Page            `json:"page"`
	Issues         []githubapi.Issue       `json:"issues"`
	Pulls          []githubapi.PullRequest `json:"pulls"`

	BranchesOp OpState `json:"branches_op"`
	CheckoutOp OpState `json:"checkout_op"`
	ContentOp  OpState `json:"content_op"`
	PageOp     OpState `json:"page_op"`
	GitHubOp   OpState `json:"github_op"`
}

// VisitRecorder persists successful navigations. Optional.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, target nav.Target) error
}

// Session coordinates one workspace view of one user's repositories.
type Session struct {
	git      *gitapi.Client
	resolver *branch.Resolver
	contents *content.Resolver
	github   *githubapi.Client
	bus      *events.Bus
	visits   VisitRecorder
	onChange func(State)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State
}

// NewSession builds a session. github, bus, and visits may be nil;
// onChange may be nil when the caller polls Snapshot instead.
func NewSession(git *gitapi.Client, resolver *branch.Resolver, contents *content.Resolver, onChange func(State)) *Session {
	return &Session{
		git:      git,
		resolver: resolver,
		contents: contents,
		onChange: onChange,
	}
}

func (s *Session) SetGitHub(c *githubapi.Client) { s.github = c }
func (s *Session) SetBus(b *events.Bus)          { s.bus = b }
func (s *Session) SetVisits(v VisitRecorder)     { s.visits = v }

// Snapshot returns the current published state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Navigate makes target the session's current view and starts the
// checkout-and-fetch pipeline for it. Any pipeline still running for an
// earlier target is cancelled; its late responses are discarded.
func (s *Session) Navigate(target nav.Target) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	prevSelected := s.state.SelectedBranch
	s.state = State{
		Target:         target,
		SelectedBranch: prevSelected,
		BranchesOp:     OpState{Loading: true},
		ContentOp:      OpState{Loading: true},
	}
	st := s.state
	s.mu.Unlock()
	s.notify(st)

	go s.pipeline(ctx, gen, target)
}

// Retry re-runs the pipeline for the current target. Retries are always
// user-initiated; nothing here retries on its own.
func (s *Session) Retry() {
	s.mu.Lock()
	target := s.state.Target
	s.mu.Unlock()
	s.Navigate(target)
}

// Close cancels any running pipeline.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// commit applies mutate to the state if gen is still current and publishes
// the result. Returns false when the pipeline has been superseded.
func (s *Session) commit(gen uint64, mutate func(*State)) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	mutate(&s.state)
	st := s.state
	s.mu.Unlock()
	s.notify(st)
	return true
}

func (s *Session) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

// pipeline runs branches → checkout → content → page for one navigation.
func (s *Session) pipeline(ctx context.Context, gen uint64, target nav.Target) {
	list, err := s.resolver.List(ctx, target.Repo)
	if err != nil {
		if gitapi.IsCancelled(err) {
			return
		}
		s.commit(gen, func(st *State) {
			st.BranchesOp = OpState{Err: err.Error()}
			st.ContentOp = OpState{}
		})
		return
	}

	desired := target.Branch
	if desired == "" {
		// Navigation normally arrives with an explicit branch (the nav
		// redirect guarantees it); fall back to the selection policy
		// for callers that skip the redirect.
		if sel, ok := branch.Select(list.Branches, s.resolver.Fallback); ok {
			desired = sel.Name
		}
	}

	found := false
	for _, b := range list.Branches {
		if b.Name == desired {
			found = true
			break
		}
	}
	if !found {
		s.commit(gen, func(st *State) {
			st.Branches = list.Branches
			st.BranchesOp = OpState{}
			st.CheckoutOp = OpState{Err: "branch not found: " + desired}
			st.ContentOp = OpState{}
		})
		return
	}

	if list.Current != desired {
		s.commit(gen, func(st *State) {
			st.Branches = list.Branches
			st.BranchesOp = OpState{}
			st.CheckoutOp = OpState{Loading: true}
		})

		refreshed, err := s.resolver.EnsureCheckout(ctx, target.Repo, desired)
		if err != nil {
			if gitapi.IsCancelled(err) {
				return
			}
			// A failed checkout blocks the content read: proceeding
			// would read from whatever branch the backend still has
			// checked out. SelectedBranch keeps its previous value.
			s.commit(gen, func(st *State) {
				st.CheckoutOp = OpState{Err: err.Error()}
				st.ContentOp = OpState{}
			})
			return
		}
		list = refreshed
		s.publish(events.Event{Type: events.EventCheckoutCompleted, Repo: target.RepoRef(), Branch: desired})
	}

	if !s.commit(gen, func(st *State) {
		st.Branches = list.Branches
		st.SelectedBranch = desired
		st.BranchesOp = OpState{}
		st.CheckoutOp = OpState{}
	}) {
		return
	}

	res, err := s.contents.Resolve(ctx, target.Repo, desired, target.Path)
	if err != nil {
		if gitapi.IsCancelled(err) {
			return
		}
		s.commit(gen, func(st *State) {
			st.ContentOp = OpState{Err: err.Error()}
		})
		return
	}
	if !s.commit(gen, func(st *State) {
		st.Content = res
		st.ContentOp = OpState{}
	}) {
		return
	}

	if s.visits != nil {
		// Best effort; a failed visit record never disturbs the view.
		_ = s.visits.RecordVisit(ctx, target)
	}
	s.publish(events.Event{Type: events.EventNavigationChanged, Repo: target.RepoRef(), Branch: desired, Path: target.Path})

	s.ensurePage(ctx, gen, target.Repo, desired)
}

// ensurePage creates the notes page for the branch on first visit.
func (s *Session) ensurePage(ctx context.Context, gen uint64, repoName, branchName string) {
	s.commit(gen, func(st *State) {
		st.PageOp = OpState{Loading: true}
	})

	page, err := s.git.CreatePage(ctx, repoName, branchName)
	if err != nil {
		if gitapi.IsCancelled(err) {
			return
		}
		s.commit(gen, func(st *State) {
			st.PageOp = OpState{Err: err.Error()}
		})
		return
	}
	s.commit(gen, func(st *State) {
		st.Page = page
		st.PageOp = OpState{}
	})
}

// FetchGitHub loads open issues and pulls for the current target. It runs
// orthogonally to the navigation pipeline but under the same generation,
// so switching repositories discards late replies here too.
func (s *Session) FetchGitHub() {
	s.mu.Lock()
	if s.github == nil {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	target := s.state.Target
	s.mu.Unlock()

	if target.Owner == "" || target.Repo == "" {
		return
	}

	s.commit(gen, func(st *State) {
		st.GitHubOp = OpState{Loading: true}
	})

	ctx := context.Background()
	issues, err := s.github.OpenIssues(ctx, target.Owner, target.Repo)
	if err != nil {
		s.commit(gen, func(st *State) {
			st.GitHubOp = OpState{Err: err.Error()}
		})
		return
	}
	pulls, err := s.github.OpenPulls(ctx, target.Owner, target.Repo)
	if err != nil {
		s.commit(gen, func(st *State) {
			st.GitHubOp = OpState{Err: err.Error()}
		})
		return
	}
	s.commit(gen, func(st *State) {
		st.Issues = issues
		st.Pulls = pulls
		st.GitHubOp = OpState{}
	})
}

func (s *Session) publish(ev events.Event) {
	if s.bus != nil {
		_ = s.bus.Publish(ev)
	}
}
