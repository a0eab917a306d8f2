// Package session holds the locally derived identity record and its load
// lifecycle. All mutation goes through the store's actions; nothing outside
// this package writes session fields directly.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-authflow/core"
	glog "github.com/goliatone/go-logger/glog"
)

// State is an immutable snapshot of the store. User is a defensive clone.
type State struct {
	User          *core.Session
	Authenticated bool
	Loaded        bool
	Loading       bool
	Err           error
}

// IsReady reports whether the session is both loaded and authenticated.
func (s State) IsReady() bool {
	return s.Loaded && s.Authenticated
}

// IsInInherentOrganization reports whether the active organization equals
// the inherent one assigned at provisioning.
func (s State) IsInInherentOrganization() bool {
	if s.User == nil {
		return false
	}
	return s.User.ActiveOrganizationID != "" &&
		s.User.ActiveOrganizationID == s.User.InherentOrganizationID
}

func (s State) IsInInherentTeam() bool {
	if s.User == nil {
		return false
	}
	return s.User.ActiveTeamID != "" &&
		s.User.ActiveTeamID == s.User.InherentTeamID
}

type Watcher func(State)

type Store struct {
	mu       sync.Mutex
	state    State
	loadedCh chan struct{}
	watchers map[int]Watcher
	nextID   int

	clearer core.TokenClearer
	logger  core.Logger
}

// New builds an empty, not-yet-loaded store. The clearer receives the
// credential-clear cascade on ClearAuth; it may be nil.
func New(clearer core.TokenClearer, logger core.Logger) *Store {
	return &Store{
		loadedCh: make(chan struct{}),
		watchers: map[int]Watcher{},
		clearer:  clearer,
		logger:   glog.Ensure(logger),
	}
}

func (s *Store) Snapshot() State {
	if s == nil {
		return State{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := s.state
	out.User = s.state.User.Clone()
	return out
}

func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().Authenticated
}

func (s *Store) IsLoaded() bool {
	return s.Snapshot().Loaded
}

func (s *Store) IsReady() bool {
	return s.Snapshot().IsReady()
}

// SetUser replaces the session record without touching the load or
// authentication flags.
func (s *Store) SetUser(user *core.Session) {
	s.mutate(func(state *State) {
		state.User = user.Clone()
	})
}

// UpdateUser shallow-merges a patch into the existing session. No-op when no
// session is present.
func (s *Store) UpdateUser(patch core.SessionPatch) {
	s.mutate(func(state *State) {
		if state.User == nil {
			return
		}
		patch.Apply(state.User)
	})
}

func (s *Store) SetLoading(loading bool) {
	s.mutate(func(state *State) {
		state.Loading = loading
	})
}

func (s *Store) SetError(err error) {
	s.mutate(func(state *State) {
		state.Err = err
	})
}

// SetAuthenticated installs a session and flips the store into the
// authenticated, loaded, not-loading, no-error state in one transition.
func (s *Store) SetAuthenticated(user *core.Session) {
	s.mutate(func(state *State) {
		state.User = user.Clone()
		state.Authenticated = user != nil
		state.Loaded = true
		state.Loading = false
		state.Err = nil
	})
}

// ClearAuth drops the session, re-enters the loaded-but-unauthenticated
// terminal state, and cascades a best-effort credential clear.
func (s *Store) ClearAuth(ctx context.Context) {
	s.mutate(func(state *State) {
		state.User = nil
		state.Authenticated = false
		state.Loaded = true
		state.Loading = false
		state.Err = nil
	})
	if s != nil && s.clearer != nil {
		core.RunAdvisory(ctx, s.logger, "session.clear_credential", s.clearer.Clear)
	}
}

// HandleUnauthorized is the transport 401 hook. Alias of ClearAuth.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	s.ClearAuth(ctx)
}

// SetActiveOrganizationID merges the active organization into the current
// session. No-op without a session.
func (s *Store) SetActiveOrganizationID(id string) {
	id = strings.TrimSpace(id)
	s.mutate(func(state *State) {
		if state.User == nil {
			return
		}
		state.User.ActiveOrganizationID = id
	})
}

func (s *Store) SetActiveTeamID(id string) {
	id = strings.TrimSpace(id)
	s.mutate(func(state *State) {
		if state.User == nil {
			return
		}
		state.User.ActiveTeamID = id
	})
}

// Initialize is the startup-only composite: install a session (or nil) and
// the initial loaded flag in one transition.
func (s *Store) Initialize(user *core.Session, loaded bool) {
	s.mutate(func(state *State) {
		state.User = user.Clone()
		state.Authenticated = user != nil
		state.Loaded = loaded
		state.Loading = false
		state.Err = nil
	})
}

// WaitLoaded blocks until the store reports loaded or the context ends.
func (s *Store) WaitLoaded(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.state.Loaded {
		s.mu.Unlock()
		return nil
	}
	ch := s.loadedCh
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a snapshot observer invoked after every mutation.
func (s *Store) Subscribe(watcher Watcher) func() {
	if s == nil || watcher == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = watcher
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(fn func(*State)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	wasLoaded := s.state.Loaded
	fn(&s.state)
	if !wasLoaded && s.state.Loaded {
		close(s.loadedCh)
	} else if wasLoaded && !s.state.Loaded {
		s.loadedCh = make(chan struct{})
	}
	snapshot := s.snapshotLocked()
	watchers := make([]Watcher, 0, len(s.watchers))
	for _, watcher := range s.watchers {
		watchers = append(watchers, watcher)
	}
	s.mu.Unlock()

	for _, watcher := range watchers {
		watcher(snapshot)
	}
}
