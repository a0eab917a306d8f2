// Package vault holds the single active bearer credential for the process.
// The in-memory mirror is authoritative for readers; durable storage is a
// best-effort write-through leg.
package vault

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-authflow/core"
	glog "github.com/goliatone/go-logger/glog"
)

// Watcher receives the credential value after every mutation, including
// clears (empty string).
type Watcher func(token string)

type Vault struct {
	mu       sync.RWMutex
	token    string
	watchers map[int]Watcher
	nextID   int

	store  core.TokenStore
	logger core.Logger
}

// New builds a vault over an optional durable store. A nil store keeps the
// credential in memory only.
func New(store core.TokenStore, logger core.Logger) *Vault {
	return &Vault{
		store:    store,
		logger:   glog.Ensure(logger),
		watchers: map[int]Watcher{},
	}
}

// Get returns the current credential, or the empty string when none is held.
func (v *Vault) Get() string {
	if v == nil {
		return ""
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.token
}

// Has reports whether a non-empty credential is currently held.
func (v *Vault) Has() bool {
	return v.Get() != ""
}

// Save updates the in-memory mirror and writes through to durable storage.
// A durable-write failure is logged and does not fail the call: readers must
// observe the requested value regardless.
func (v *Vault) Save(ctx context.Context, token string) error {
	if v == nil {
		return nil
	}
	token = strings.TrimSpace(token)

	v.mu.Lock()
	v.token = token
	watchers := make([]Watcher, 0, len(v.watchers))
	for _, watcher := range v.watchers {
		watchers = append(watchers, watcher)
	}
	v.mu.Unlock()

	if v.store != nil {
		core.RunAdvisory(ctx, v.logger, "vault.persist", func(ctx context.Context) error {
			if token == "" {
				return v.store.Clear(ctx)
			}
			return v.store.Store(ctx, token)
		})
	}

	for _, watcher := range watchers {
		watcher(token)
	}
	return nil
}

// Clear drops the credential. Equivalent to Save with an empty value.
func (v *Vault) Clear(ctx context.Context) error {
	return v.Save(ctx, "")
}

// Restore hydrates the mirror from durable storage without notifying
// watchers of a no-op. Used once at startup.
func (v *Vault) Restore(ctx context.Context) error {
	if v == nil || v.store == nil {
		return nil
	}
	token, err := v.store.Load(ctx)
	if err != nil {
		v.logger.Warn("credential restore failed", "error", err)
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	v.mu.Lock()
	v.token = token
	watchers := make([]Watcher, 0, len(v.watchers))
	for _, watcher := range v.watchers {
		watchers = append(watchers, watcher)
	}
	v.mu.Unlock()

	for _, watcher := range watchers {
		watcher(token)
	}
	return nil
}

// Watch registers a mutation observer and returns its unsubscribe func.
func (v *Vault) Watch(watcher Watcher) func() {
	if v == nil || watcher == nil {
		return func() {}
	}
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.watchers[id] = watcher
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.watchers, id)
		v.mu.Unlock()
	}
}

var _ core.TokenClearer = (*Vault)(nil)
