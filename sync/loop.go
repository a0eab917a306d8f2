// Package sync keeps the session store reconciled against an externally
// observed raw session payload and drives edge-triggered side effects:
// bootstrap on sign-in, auth-change notifications, and startup credential
// adoption.
package sync

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	gosync "sync"

	"github.com/goliatone/go-authflow/core"
	"github.com/goliatone/go-authflow/session"
	"github.com/goliatone/go-authflow/vault"
	glog "github.com/goliatone/go-logger/glog"
)

// Coordinator is the slice of the bootstrap coordinator the loop drives.
type Coordinator interface {
	Ensure(ctx context.Context, credential string)
	Reset()
}

// Observation is one tick of the externally observed session state.
type Observation struct {
	Payload any
	Loaded  bool
	Path    string
}

const (
	authUnknown = iota
	authFalse
	authTrue
)

type LoopDeps struct {
	Config      core.Config
	Sessions    *session.Store
	Vault       *vault.Vault
	Gateway     core.IdentityGateway
	Coordinator Coordinator
	Notifier    core.AuthChangeNotifier
	Enqueuer    core.JobEnqueuer
	Logger      core.Logger
	Metrics     core.MetricsRecorder
}

type Loop struct {
	cfg         core.Config
	sessions    *session.Store
	vault       *vault.Vault
	gateway     core.IdentityGateway
	coordinator Coordinator
	notifier    core.AuthChangeNotifier
	enqueuer    core.JobEnqueuer
	logger      core.Logger
	metrics     core.MetricsRecorder

	mu           gosync.Mutex
	prevAuth     int
	bootstrapped bool
	adopted      bool
}

func NewLoop(deps LoopDeps) (*Loop, error) {
	if deps.Sessions == nil {
		return nil, fmt.Errorf("sync: session store is required")
	}
	if deps.Vault == nil {
		return nil, fmt.Errorf("sync: vault is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &Loop{
		cfg:         deps.Config,
		sessions:    deps.Sessions,
		vault:       deps.Vault,
		gateway:     deps.Gateway,
		coordinator: deps.Coordinator,
		notifier:    deps.Notifier,
		enqueuer:    deps.Enqueuer,
		logger:      glog.Ensure(deps.Logger),
		metrics:     metrics,
		prevAuth:    authUnknown,
	}, nil
}

// Observe reconciles one tick. Publishing into the store is unconditional
// and idempotent; bootstrap and the auth-change notification are
// edge-triggered.
func (l *Loop) Observe(ctx context.Context, obs Observation) {
	if l == nil {
		return
	}

	user := SessionFromPayload(obs.Payload)
	if user != nil {
		l.sessions.SetAuthenticated(user)
	} else if obs.Loaded {
		l.sessions.Initialize(nil, true)
	} else {
		l.sessions.SetLoading(true)
	}

	state := l.sessions.Snapshot()
	authenticated := state.Authenticated

	l.mu.Lock()
	signedOut := user == nil && l.bootstrapped
	if signedOut {
		l.bootstrapped = false
	}
	shouldBootstrap := state.Loaded && authenticated &&
		user != nil && user.EmailVerified &&
		!l.bootstrapped && !l.cfg.BootstrapExcluded(obs.Path)
	if shouldBootstrap {
		l.bootstrapped = true
	}
	prev := l.prevAuth
	current := authFalse
	if authenticated {
		current = authTrue
	}
	// Key the edge on the store's post-publish state: an authenticated
	// payload forces the store loaded even when the tick itself was not.
	flipped := state.Loaded && prev != current
	if state.Loaded {
		l.prevAuth = current
	}
	l.mu.Unlock()

	if signedOut && l.coordinator != nil {
		l.coordinator.Reset()
	}
	if shouldBootstrap && l.coordinator != nil {
		l.coordinator.Ensure(ctx, l.vault.Get())
	}
	if flipped && l.notifier != nil {
		l.notifier.AuthChanged(ctx, authenticated, state.User)
		l.metrics.IncCounter(ctx, "authflow.sync.auth_changed", 1, map[string]string{
			"authenticated": fmt.Sprintf("%t", authenticated),
		})
	}
}

// AdoptStartupURL is the one-shot startup step: it inspects the initial
// navigation URL for a credential parameter, strips it, and adopts the
// credential. It fails open: a fetch failure clears the credential and
// marks the store loaded so initial render is never blocked. Returns the
// sanitized URL.
func (l *Loop) AdoptStartupURL(ctx context.Context, rawURL string) (string, error) {
	if l == nil {
		return rawURL, nil
	}
	l.mu.Lock()
	if l.adopted {
		l.mu.Unlock()
		return rawURL, nil
	}
	l.adopted = true
	l.mu.Unlock()

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, fmt.Errorf("sync: parse startup url: %w", err)
	}
	query := parsed.Query()
	token := strings.TrimSpace(query.Get(l.cfg.TokenParam))
	if token == "" {
		return rawURL, nil
	}

	// Strip the credential before anything else so it never survives in
	// navigation history.
	query.Del(l.cfg.TokenParam)
	parsed.RawQuery = query.Encode()
	sanitized := parsed.String()

	if err := l.vault.Save(ctx, token); err != nil {
		return sanitized, err
	}

	user, err := l.fetchSession(ctx, token)
	if err != nil || user == nil {
		l.logger.Warn("startup credential adoption failed", "error", err)
		if clearErr := l.vault.Clear(ctx); clearErr != nil {
			l.logger.Warn("credential clear failed", "error", clearErr)
		}
		l.sessions.Initialize(nil, true)
		return sanitized, nil
	}

	l.sessions.SetAuthenticated(user)
	l.enqueueRefresh(ctx, user.ID)
	return sanitized, nil
}

func (l *Loop) fetchSession(ctx context.Context, token string) (*core.Session, error) {
	if l.gateway == nil {
		return nil, fmt.Errorf("sync: gateway is not configured")
	}
	return l.gateway.FetchSessionByToken(ctx, token)
}

// enqueueRefresh schedules a background session refresh so an adopted
// credential converges with the remote session record.
func (l *Loop) enqueueRefresh(ctx context.Context, sessionID string) {
	if l.enqueuer == nil {
		return
	}
	core.RunAdvisory(ctx, l.logger, "sync.enqueue_refresh", func(ctx context.Context) error {
		return l.enqueuer.Enqueue(ctx, &core.JobExecutionMessage{
			JobID:          RefreshJobID,
			Parameters:     map[string]any{"session_id": sessionID},
			IdempotencyKey: RefreshJobID + "::" + sessionID,
			DedupPolicy:    "drop",
		})
	})
}
