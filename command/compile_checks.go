package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ResolveCallbackMessage] = (*ResolveCallbackCommand)(nil)
	_ gocmd.Commander[EnsureBootstrapMessage] = (*EnsureBootstrapCommand)(nil)
	_ gocmd.Commander[AdoptStartupURLMessage] = (*AdoptStartupURLCommand)(nil)
	_ gocmd.Commander[SignOutMessage]         = (*SignOutCommand)(nil)
)
