package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-authflow/core"
	"github.com/goliatone/go-authflow/session"
	"github.com/goliatone/go-authflow/vault"
	glog "github.com/goliatone/go-logger/glog"
)

// RefreshJobID identifies background session-refresh jobs on the queue.
const RefreshJobID = "authflow.session.refresh"

const refreshRetryDelay = 30 * time.Second

type RefreshWorkerDeps struct {
	Dequeuer core.JobDequeuer
	Sessions *session.Store
	Vault    *vault.Vault
	Gateway  core.IdentityGateway
	Hook     core.JobWorkerHook
	Logger   core.Logger
	Metrics  core.MetricsRecorder
}

// RefreshWorker drains session-refresh jobs: it refetches the remote
// session for the currently held credential and reconciles the store. A 401
// tears local auth down; transport failures requeue with a delay.
type RefreshWorker struct {
	dequeuer core.JobDequeuer
	sessions *session.Store
	vault    *vault.Vault
	gateway  core.IdentityGateway
	hook     core.JobWorkerHook
	logger   core.Logger
	metrics  core.MetricsRecorder
}

func NewRefreshWorker(deps RefreshWorkerDeps) (*RefreshWorker, error) {
	if deps.Dequeuer == nil {
		return nil, fmt.Errorf("sync: dequeuer is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("sync: session store is required")
	}
	if deps.Vault == nil {
		return nil, fmt.Errorf("sync: vault is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("sync: gateway is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &RefreshWorker{
		dequeuer: deps.Dequeuer,
		sessions: deps.Sessions,
		vault:    deps.Vault,
		gateway:  deps.Gateway,
		hook:     deps.Hook,
		logger:   glog.Ensure(deps.Logger),
		metrics:  metrics,
	}, nil
}

// Run drains the queue until the context ends.
func (w *RefreshWorker) Run(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("sync: refresh worker is not configured")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.Warn("refresh dequeue failed", "error", err)
			continue
		}
		if delivery == nil {
			continue
		}
		w.handle(ctx, delivery)
	}
}

func (w *RefreshWorker) handle(ctx context.Context, delivery core.JobDelivery) {
	msg := delivery.Message()
	started := time.Now()
	event := core.JobWorkerEvent{Message: msg, Attempt: 1, StartedAt: started}
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}

	err := w.refresh(ctx)
	event.Duration = time.Since(started)
	event.Err = err

	switch {
	case err == nil:
		w.metrics.IncCounter(ctx, "authflow.sync.refresh_completed", 1, nil)
		if w.hook != nil {
			w.hook.OnSuccess(ctx, event)
		}
		w.ack(ctx, delivery)
	case core.IsTransportFailure(err):
		w.logger.Warn("session refresh hit a transport failure, requeueing", "error", err)
		if w.hook != nil {
			w.hook.OnRetry(ctx, event)
		}
		w.nack(ctx, delivery, core.JobNackOptions{
			Delay:   refreshRetryDelay,
			Requeue: true,
			Reason:  "transport failure",
		})
	default:
		w.logger.Error("session refresh failed", "error", err)
		if w.hook != nil {
			w.hook.OnFailure(ctx, event)
		}
		w.nack(ctx, delivery, core.JobNackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		})
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) error {
	credential := w.vault.Get()
	if credential == "" {
		// Signed out since the job was enqueued. Nothing to refresh.
		return nil
	}

	user, err := w.gateway.FetchSessionByToken(ctx, credential)
	if err != nil {
		if core.IsUnauthorized(err) {
			w.sessions.HandleUnauthorized(ctx)
			return nil
		}
		return err
	}
	if user == nil {
		w.sessions.HandleUnauthorized(ctx)
		return nil
	}
	w.sessions.SetAuthenticated(user)
	return nil
}

func (w *RefreshWorker) ack(ctx context.Context, delivery core.JobDelivery) {
	if err := delivery.Ack(ctx); err != nil {
		w.logger.Warn("refresh ack failed", "error", err)
	}
}

func (w *RefreshWorker) nack(ctx context.Context, delivery core.JobDelivery, opts core.JobNackOptions) {
	if err := delivery.Nack(ctx, opts); err != nil {
		w.logger.Warn("refresh nack failed", "error", err)
	}
}
