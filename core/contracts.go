package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// IdentityGateway abstracts every remote call this subsystem performs
// against the identity provider. Credentials are opaque bearer tokens; no
// verification happens locally.
type IdentityGateway interface {
	VerifyEmailToken(ctx context.Context, token string, callbackURL string) error
	ConfirmDeletion(ctx context.Context, token string) error
	EnsureCompanionResources(ctx context.Context, credential string) error
	FetchSessionByToken(ctx context.Context, token string) (*Session, error)
	SetActiveOrganization(ctx context.Context, organizationID string) (Organization, error)
	SetActiveTeam(ctx context.Context, teamID string) error
	AcceptInvitation(ctx context.Context, invitationID string) (InvitationAcceptance, error)
	ListUserTeams(ctx context.Context) ([]Team, error)
	ListLinkedAccounts(ctx context.Context, credential string) ([]Account, error)
	UnlinkAccount(ctx context.Context, provider string, accountID string, credential string) error
	SignOut(ctx context.Context) error
}

// TokenStore is the durable leg of the token vault. Implementations persist
// exactly one credential under a configured storage key.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Store(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenClearer is the narrow slice of the vault the session store needs for
// the clear-auth cascade.
type TokenClearer interface {
	Clear(ctx context.Context) error
}

// AuthChangeNotifier receives edge-triggered notifications: one call per
// real flip of the authenticated boolean, never on reconciliations that
// leave the value unchanged.
type AuthChangeNotifier interface {
	AuthChanged(ctx context.Context, authenticated bool, session *Session)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg any) error
}

// JobExecutionMessage is the queue contract for background session
// refreshes. DedupPolicy and IdempotencyKey follow the go-job semantics.
type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
