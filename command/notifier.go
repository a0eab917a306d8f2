package command

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-authflow/core"
)

// DispatchingNotifier bridges auth-change edges onto a command dispatcher as
// AuthChangedMessage events. Dispatch failures are logged, never propagated:
// the sync loop must not stall on a slow or broken event consumer.
type DispatchingNotifier struct {
	dispatcher core.CommandDispatcher
	logger     core.Logger
}

func NewDispatchingNotifier(dispatcher core.CommandDispatcher, logger core.Logger) *DispatchingNotifier {
	return &DispatchingNotifier{
		dispatcher: dispatcher,
		logger:     glog.Ensure(logger),
	}
}

func (n *DispatchingNotifier) AuthChanged(ctx context.Context, authenticated bool, session *core.Session) {
	if n == nil || n.dispatcher == nil {
		return
	}
	msg := AuthChangedMessage{Authenticated: authenticated, Session: session}
	if err := n.dispatcher.Dispatch(ctx, msg); err != nil {
		n.logger.Warn("auth change dispatch failed", "authenticated", authenticated, "error", err)
	}
}

var _ core.AuthChangeNotifier = (*DispatchingNotifier)(nil)
