package authflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-authflow/command"
	"github.com/goliatone/go-authflow/core"
)

// ResolveCallback resolves an authentication callback into a navigation
// outcome. The resolver never fails hard: every path, including internal
// panics, collapses into an outcome with a safe redirect.
func (s *Service) ResolveCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackOutcome, error) {
	if s == nil || s.resolver == nil {
		return core.CallbackOutcome{}, fmt.Errorf("authflow: callback resolver is not configured")
	}
	return s.resolver.HandleCallback(ctx, req), nil
}

// EnsureBootstrap runs the idempotent companion-resource bootstrap for the
// given credential. Repeat invocations for the same session identity are
// no-ops until sign-out or a failed attempt re-arms the guard.
func (s *Service) EnsureBootstrap(ctx context.Context, credential string) error {
	if s == nil || s.coordinator == nil {
		return fmt.Errorf("authflow: bootstrap coordinator is not configured")
	}
	if strings.TrimSpace(credential) == "" {
		return fmt.Errorf("authflow: credential is required")
	}
	s.coordinator.Ensure(ctx, credential)
	return nil
}

// AdoptStartupURL inspects the initial navigation URL for a credential
// parameter and adopts it. Returns the sanitized URL with the credential
// stripped.
func (s *Service) AdoptStartupURL(ctx context.Context, rawURL string) (string, error) {
	if s == nil || s.loop == nil {
		return rawURL, fmt.Errorf("authflow: sync loop is not configured")
	}
	return s.loop.AdoptStartupURL(ctx, rawURL)
}

// SignOut tears local auth down and best-effort revokes the remote session.
// The local teardown always runs, even when the remote call fails.
func (s *Service) SignOut(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("authflow: service is nil")
	}
	if s.gateway != nil {
		core.RunAdvisory(ctx, s.logger, "authflow.sign_out", func(ctx context.Context) error {
			return s.gateway.SignOut(ctx)
		})
	}
	s.sessions.ClearAuth(ctx)
	s.coordinator.Reset()
	return nil
}

// Commands returns command handlers bound to this service, ready for
// registration with a dispatcher.
func (s *Service) Commands() (
	*command.ResolveCallbackCommand,
	*command.EnsureBootstrapCommand,
	*command.AdoptStartupURLCommand,
	*command.SignOutCommand,
) {
	return command.NewResolveCallbackCommand(s),
		command.NewEnsureBootstrapCommand(s),
		command.NewAdoptStartupURLCommand(s),
		command.NewSignOutCommand(s)
}

var _ command.AuthFlowService = (*Service)(nil)
