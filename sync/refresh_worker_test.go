package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-authflow/core"
	"github.com/goliatone/go-authflow/session"
	"github.com/goliatone/go-authflow/vault"
	goerrors "github.com/goliatone/go-errors"
)

type memoryDelivery struct {
	msg    *core.JobExecutionMessage
	acked  bool
	nacked bool
	nack   core.JobNackOptions
}

func (d *memoryDelivery) Message() *core.JobExecutionMessage { return d.msg }

func (d *memoryDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	d.nacked = true
	d.nack = opts
	return nil
}

type workerFixture struct {
	worker   *RefreshWorker
	sessions *session.Store
	vault    *vault.Vault
	gateway  *fakeSessionGateway
}

type singleDequeuer struct {
	delivery core.JobDelivery
}

func (d *singleDequeuer) Dequeue(context.Context) (core.JobDelivery, error) {
	return d.delivery, nil
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	f := &workerFixture{vault: vault.New(nil, nil), gateway: &fakeSessionGateway{}}
	f.sessions = session.New(f.vault, nil)
	worker, err := NewRefreshWorker(RefreshWorkerDeps{
		Dequeuer: &singleDequeuer{},
		Sessions: f.sessions,
		Vault:    f.vault,
		Gateway:  f.gateway,
	})
	if err != nil {
		t.Fatalf("worker: %v", err)
	}
	f.worker = worker
	return f
}

func refreshDelivery() *memoryDelivery {
	return &memoryDelivery{msg: &core.JobExecutionMessage{JobID: RefreshJobID}}
}

func TestRefreshWorker_ReconcilesSession(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	if err := f.vault.Save(ctx, "cred-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.gateway.session = &core.Session{ID: "u1", Email: "fresh@example.com", EmailVerified: true}

	delivery := refreshDelivery()
	f.worker.handle(ctx, delivery)

	if !delivery.acked {
		t.Fatalf("expected ack")
	}
	if user := f.sessions.Snapshot().User; user == nil || user.Email != "fresh@example.com" {
		t.Fatalf("expected reconciled session, got %+v", user)
	}
}

func TestRefreshWorker_UnauthorizedTearsDownAuth(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	if err := f.vault.Save(ctx, "cred-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.sessions.SetAuthenticated(&core.Session{ID: "u1"})
	f.gateway.err = goerrors.New("credential rejected", goerrors.CategoryAuth).WithCode(http.StatusUnauthorized)

	delivery := refreshDelivery()
	f.worker.handle(ctx, delivery)

	if !delivery.acked {
		t.Fatalf("401 is a terminal outcome, expected ack")
	}
	if f.sessions.IsAuthenticated() {
		t.Fatalf("expected auth teardown on 401")
	}
	if f.vault.Has() {
		t.Fatalf("expected credential clear cascade")
	}
}

func TestRefreshWorker_TransportFailureRequeues(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	if err := f.vault.Save(ctx, "cred-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.gateway.err = core.NewTransportError(errors.New("timeout"), "request failed")

	delivery := refreshDelivery()
	f.worker.handle(ctx, delivery)

	if !delivery.nacked || !delivery.nack.Requeue {
		t.Fatalf("expected requeue nack, got %+v", delivery)
	}
	if delivery.nack.Delay != refreshRetryDelay {
		t.Fatalf("unexpected retry delay: %v", delivery.nack.Delay)
	}
}

func TestRefreshWorker_NoCredentialIsNoOp(t *testing.T) {
	f := newWorkerFixture(t)
	delivery := refreshDelivery()
	f.worker.handle(context.Background(), delivery)

	if !delivery.acked {
		t.Fatalf("expected ack for signed-out refresh")
	}
	if f.gateway.calls != 0 {
		t.Fatalf("no credential means no fetch")
	}
}
