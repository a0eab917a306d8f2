// Package sqlstore is the durable leg of the token vault: one credential row
// per storage key, backed by bun.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-authflow/core"
)

type TokenStore struct {
	db         *bun.DB
	repo       repository.Repository[*credentialRecord]
	storageKey string
}

func NewTokenStore(db *bun.DB, storageKey string) (*TokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return nil, fmt.Errorf("sqlstore: storage key is required")
	}

	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	return &TokenStore{db: db, repo: repo, storageKey: storageKey}, nil
}

// Load returns the persisted credential, or the empty string when none is
// stored under the configured key.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("storage_key", "=", s.storageKey),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].Token, nil
}

// Store upserts the credential under the configured key.
func (s *TokenStore) Store(ctx context.Context, token string) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear(ctx)
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		updated, err := tx.NewUpdate().
			Model((*credentialRecord)(nil)).
			Set("token = ?", token).
			Set("updated_at = ?", now).
			Where("storage_key = ?", s.storageKey).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, raErr := updated.RowsAffected(); raErr == nil && affected > 0 {
			return nil
		}

		record := &credentialRecord{
			ID:         uuid.NewString(),
			StorageKey: s.storageKey,
			Token:      token,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		_, err = s.repo.CreateTx(ctx, tx, record)
		return err
	})
}

// Clear removes the credential row. Clearing an absent row is a no-op.
func (s *TokenStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("storage_key = ?", s.storageKey).
		Exec(ctx)
	return err
}

var _ core.TokenStore = (*TokenStore)(nil)
