package command

import (
	"strings"

	"github.com/goliatone/go-authflow/core"
)

const (
	TypeResolveCallback = "authflow.command.callback.resolve"
	TypeEnsureBootstrap = "authflow.command.bootstrap.ensure"
	TypeAdoptStartupURL = "authflow.command.startup.adopt_url"
	TypeSignOut         = "authflow.command.sign_out"
	TypeAuthChanged     = "authflow.event.auth_changed"
)

type ResolveCallbackMessage struct {
	Request core.CallbackRequest
}

func (ResolveCallbackMessage) Type() string { return TypeResolveCallback }

func (m ResolveCallbackMessage) Validate() error {
	// Unrecognized kinds are not an input error: they resolve to the
	// default redirect. Only a kind that bypassed parsing is rejected.
	if m.Request.Kind != core.ParseCallbackKind(string(m.Request.Kind)) {
		return commandInvalidInputError("command: callback kind is not normalized")
	}
	return nil
}

type EnsureBootstrapMessage struct {
	Credential string
}

func (EnsureBootstrapMessage) Type() string { return TypeEnsureBootstrap }

func (m EnsureBootstrapMessage) Validate() error {
	if strings.TrimSpace(m.Credential) == "" {
		return commandValidationError("credential", "credential is required")
	}
	return nil
}

type AdoptStartupURLMessage struct {
	RawURL string
}

func (AdoptStartupURLMessage) Type() string { return TypeAdoptStartupURL }

func (m AdoptStartupURLMessage) Validate() error {
	if strings.TrimSpace(m.RawURL) == "" {
		return commandValidationError("raw_url", "startup url is required")
	}
	return nil
}

type SignOutMessage struct{}

func (SignOutMessage) Type() string { return TypeSignOut }

func (SignOutMessage) Validate() error { return nil }

// AuthChangedMessage is the event published on every real flip of the
// authenticated boolean. Session is nil on the sign-out edge.
type AuthChangedMessage struct {
	Authenticated bool
	Session       *core.Session
}

func (AuthChangedMessage) Type() string { return TypeAuthChanged }

func (m AuthChangedMessage) Validate() error {
	if m.Authenticated && m.Session == nil {
		return commandInvalidInputError("command: authenticated event requires a session")
	}
	return nil
}
