package session

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-authflow/core"
)

type recordingClearer struct {
	calls int
	err   error
}

func (c *recordingClearer) Clear(context.Context) error {
	c.calls++
	return c.err
}

func testSession() *core.Session {
	return &core.Session{
		ID:                     "u1",
		Email:                  "user@example.com",
		EmailVerified:          true,
		InherentOrganizationID: "org-1",
		InherentTeamID:         "team-1",
	}
}

func TestSetAuthenticated_AtomicTransition(t *testing.T) {
	store := New(nil, nil)
	store.SetLoading(true)
	store.SetError(context.DeadlineExceeded)

	store.SetAuthenticated(testSession())

	state := store.Snapshot()
	if !state.Authenticated || !state.Loaded || state.Loading || state.Err != nil {
		t.Fatalf("unexpected state after SetAuthenticated: %+v", state)
	}
	if !state.IsReady() {
		t.Fatalf("expected ready state")
	}
}

func TestClearAuth_CascadesToClearer(t *testing.T) {
	clearer := &recordingClearer{}
	store := New(clearer, nil)
	store.SetAuthenticated(testSession())

	store.ClearAuth(context.Background())

	state := store.Snapshot()
	if state.User != nil || state.Authenticated {
		t.Fatalf("expected cleared session, got %+v", state)
	}
	if !state.Loaded {
		t.Fatalf("clear must land in the loaded terminal state")
	}
	if clearer.calls != 1 {
		t.Fatalf("expected one credential clear, got %d", clearer.calls)
	}
}

func TestHandleUnauthorized_AliasesClearAuth(t *testing.T) {
	clearer := &recordingClearer{}
	store := New(clearer, nil)
	store.SetAuthenticated(testSession())

	store.HandleUnauthorized(context.Background())
	if store.IsAuthenticated() {
		t.Fatalf("expected unauthenticated state after 401")
	}
	if clearer.calls != 1 {
		t.Fatalf("expected credential clear on 401")
	}
}

func TestUpdateUser_NoOpWithoutSession(t *testing.T) {
	store := New(nil, nil)
	store.UpdateUser(core.SessionPatch{EmailVerified: core.BoolPatch(true)})
	if store.Snapshot().User != nil {
		t.Fatalf("patch without a session must be a no-op")
	}
}

func TestSetActiveIDs_MergeIntoSession(t *testing.T) {
	store := New(nil, nil)
	store.SetActiveOrganizationID("org-9")
	if store.Snapshot().User != nil {
		t.Fatalf("active id without a session must be a no-op")
	}

	store.SetAuthenticated(testSession())
	store.SetActiveOrganizationID("org-1")
	store.SetActiveTeamID("team-2")

	state := store.Snapshot()
	if state.User.ActiveOrganizationID != "org-1" || state.User.ActiveTeamID != "team-2" {
		t.Fatalf("unexpected active ids: %+v", state.User)
	}
	if !state.IsInInherentOrganization() {
		t.Fatalf("active org equals inherent org, expected true")
	}
	if state.IsInInherentTeam() {
		t.Fatalf("active team differs from inherent team, expected false")
	}
}

func TestSnapshot_ReturnsClone(t *testing.T) {
	store := New(nil, nil)
	store.SetAuthenticated(testSession())

	snap := store.Snapshot()
	snap.User.Email = "mutated@example.com"

	if store.Snapshot().User.Email != "user@example.com" {
		t.Fatalf("snapshot mutation leaked into store")
	}
}

func TestWaitLoaded_UnblocksOnLoad(t *testing.T) {
	store := New(nil, nil)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- store.WaitLoaded(ctx)
	}()

	store.Initialize(nil, true)
	if err := <-done; err != nil {
		t.Fatalf("wait loaded: %v", err)
	}
}

func TestWaitLoaded_ContextCancellation(t *testing.T) {
	store := New(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := store.WaitLoaded(ctx); err == nil {
		t.Fatalf("expected context error while unloaded")
	}
}

func TestSubscribe_ObservesMutations(t *testing.T) {
	store := New(nil, nil)
	var flips []bool
	unsubscribe := store.Subscribe(func(state State) {
		flips = append(flips, state.Authenticated)
	})

	store.SetAuthenticated(testSession())
	store.ClearAuth(context.Background())
	unsubscribe()
	store.SetAuthenticated(testSession())

	if len(flips) != 2 || !flips[0] || flips[1] {
		t.Fatalf("unexpected subscription sequence: %#v", flips)
	}
}
