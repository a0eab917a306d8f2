// Package bootstrap ensures a signed-in identity has its companion
// organization and team provisioned and activated. The whole process is
// idempotent per session: one attempt per session identity, tracked by an
// atomic guard rather than a cooperative boolean, so concurrent triggers in
// the same window cannot double-run it.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-authflow/core"
	"github.com/goliatone/go-authflow/session"
	glog "github.com/goliatone/go-logger/glog"
)

type CoordinatorDeps struct {
	Gateway  core.IdentityGateway
	Sessions *session.Store
	Logger   core.Logger
	Metrics  core.MetricsRecorder

	// OnComplete fires when bootstrap finishes or is already satisfied.
	// OnError fires on an unexpected top-level failure, after the guard has
	// been reset to permit a retry.
	OnComplete func()
	OnError    func(error)
}

type Coordinator struct {
	gateway    core.IdentityGateway
	sessions   *session.Store
	logger     core.Logger
	metrics    core.MetricsRecorder
	onComplete func()
	onError    func(error)

	mu           sync.Mutex
	attemptedFor string
}

func NewCoordinator(deps CoordinatorDeps) (*Coordinator, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("bootstrap: gateway is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("bootstrap: session store is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &Coordinator{
		gateway:    deps.Gateway,
		sessions:   deps.Sessions,
		logger:     glog.Ensure(deps.Logger),
		metrics:    metrics,
		onComplete: deps.OnComplete,
		onError:    deps.OnError,
	}, nil
}

// Ensure runs at most one bootstrap attempt for the current session
// identity. Benign no-op paths keep the guard marked; only sign-out (Reset)
// or an unexpected failure re-arm it.
func (c *Coordinator) Ensure(ctx context.Context, credential string) {
	if c == nil {
		return
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return
	}

	snapshot := c.sessions.Snapshot()
	user := snapshot.User
	if user == nil {
		return
	}

	if !c.claimGuard(user.ID) {
		return
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			c.fail(user.ID, fmt.Errorf("bootstrap: panic: %v", recovered))
		}
	}()

	c.metrics.IncCounter(ctx, "authflow.bootstrap.attempted", 1, nil)

	if user.ActiveOrganizationID != "" && user.ActiveTeamID != "" {
		c.complete()
		return
	}

	if user.InherentOrganizationID == "" || user.InherentTeamID == "" {
		c.provisionCompanions(ctx, credential)
		c.complete()
		return
	}

	if err := c.activate(ctx, user); err != nil {
		c.fail(user.ID, err)
		return
	}
	c.complete()
}

// Reset re-arms the guard. Invoked on sign-out.
func (c *Coordinator) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.attemptedFor = ""
	c.mu.Unlock()
}

// claimGuard performs the compare-and-set: it succeeds only when no attempt
// has been recorded for this session identity.
func (c *Coordinator) claimGuard(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attemptedFor == sessionID {
		return false
	}
	c.attemptedFor = sessionID
	return true
}

func (c *Coordinator) releaseGuard(sessionID string) {
	c.mu.Lock()
	if c.attemptedFor == sessionID {
		c.attemptedFor = ""
	}
	c.mu.Unlock()
}

// provisionCompanions asks the gateway to create the inherent resources and
// folds the refreshed ids back into the session. Every step is advisory:
// the caller UX must not block on provisioning.
func (c *Coordinator) provisionCompanions(ctx context.Context, credential string) {
	result := core.RunAdvisory(ctx, c.logger, "bootstrap.ensure_companion_resources", func(ctx context.Context) error {
		return c.gateway.EnsureCompanionResources(ctx, credential)
	})
	if !result.OK() {
		return
	}

	core.RunAdvisory(ctx, c.logger, "bootstrap.refresh_session", func(ctx context.Context) error {
		refreshed, err := c.gateway.FetchSessionByToken(ctx, credential)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return nil
		}
		c.sessions.UpdateUser(core.SessionPatch{
			InherentOrganizationID: core.StringPatch(refreshed.InherentOrganizationID),
			InherentTeamID:         core.StringPatch(refreshed.InherentTeamID),
			ActiveOrganizationID:   core.StringPatch(refreshed.ActiveOrganizationID),
			ActiveTeamID:           core.StringPatch(refreshed.ActiveTeamID),
		})
		return nil
	})
}

// activate sets the missing active ids from the inherent pair. When both are
// missing this is two sequential remote calls and is not atomic.
func (c *Coordinator) activate(ctx context.Context, user *core.Session) error {
	if user.ActiveOrganizationID == "" {
		if _, err := c.gateway.SetActiveOrganization(ctx, user.InherentOrganizationID); err != nil {
			return fmt.Errorf("bootstrap: activate organization: %w", err)
		}
		c.sessions.SetActiveOrganizationID(user.InherentOrganizationID)
	}
	if user.ActiveTeamID == "" {
		if err := c.gateway.SetActiveTeam(ctx, user.InherentTeamID); err != nil {
			return fmt.Errorf("bootstrap: activate team: %w", err)
		}
		c.sessions.SetActiveTeamID(user.InherentTeamID)
	}
	return nil
}

func (c *Coordinator) complete() {
	if c.onComplete != nil {
		c.onComplete()
	}
}

func (c *Coordinator) fail(sessionID string, err error) {
	c.releaseGuard(sessionID)
	c.logger.Error("bootstrap failed", "error", err)
	if c.onError != nil {
		c.onError(err)
	}
}
