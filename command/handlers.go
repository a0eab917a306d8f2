// Package command wraps the auth-flow service in typed command handlers so
// callers can dispatch operations through a message bus and collect results
// from context.
package command

import (
	"context"

	"github.com/goliatone/go-authflow/core"
	gocmd "github.com/goliatone/go-command"
)

// AuthFlowService is the mutating surface the command handlers drive.
type AuthFlowService interface {
	ResolveCallback(ctx context.Context, req core.CallbackRequest) (core.CallbackOutcome, error)
	EnsureBootstrap(ctx context.Context, credential string) error
	AdoptStartupURL(ctx context.Context, rawURL string) (string, error)
	SignOut(ctx context.Context) error
}

type ResolveCallbackCommand struct {
	service AuthFlowService
}

func NewResolveCallbackCommand(service AuthFlowService) *ResolveCallbackCommand {
	return &ResolveCallbackCommand{service: service}
}

func (c *ResolveCallbackCommand) Execute(ctx context.Context, msg ResolveCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	out, err := c.service.ResolveCallback(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type EnsureBootstrapCommand struct {
	service AuthFlowService
}

func NewEnsureBootstrapCommand(service AuthFlowService) *EnsureBootstrapCommand {
	return &EnsureBootstrapCommand{service: service}
}

func (c *EnsureBootstrapCommand) Execute(ctx context.Context, msg EnsureBootstrapMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bootstrap service is required")
	}
	return c.service.EnsureBootstrap(ctx, msg.Credential)
}

type AdoptStartupURLCommand struct {
	service AuthFlowService
}

func NewAdoptStartupURLCommand(service AuthFlowService) *AdoptStartupURLCommand {
	return &AdoptStartupURLCommand{service: service}
}

func (c *AdoptStartupURLCommand) Execute(ctx context.Context, msg AdoptStartupURLMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: startup service is required")
	}
	sanitized, err := c.service.AdoptStartupURL(ctx, msg.RawURL)
	if err != nil {
		return err
	}
	storeResult(ctx, sanitized)
	return nil
}

type SignOutCommand struct {
	service AuthFlowService
}

func NewSignOutCommand(service AuthFlowService) *SignOutCommand {
	return &SignOutCommand{service: service}
}

func (c *SignOutCommand) Execute(ctx context.Context, msg SignOutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sign-out service is required")
	}
	return c.service.SignOut(ctx)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
