package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-authflow/core"
)

const tokenCacheKeyPrefix = "go-authflow::credential::v1"

// CachedTokenStore wraps a token store with a read-through cache. Writes and
// clears invalidate before delegating so readers never observe a stale
// credential after a mutation.
type CachedTokenStore struct {
	base       core.TokenStore
	cache      repositorycache.CacheService
	storageKey string
}

func NewCachedTokenStore(base core.TokenStore, cacheService repositorycache.CacheService, storageKey string) (*CachedTokenStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base token store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: token cache service is required")
	}
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return nil, fmt.Errorf("sqlstore: storage key is required")
	}
	return &CachedTokenStore{base: base, cache: cacheService, storageKey: storageKey}, nil
}

// TokenCacheKey returns the deterministic cache key for a storage key:
// go-authflow::credential::v1::<storage_key> with the key URL-path escaped.
func TokenCacheKey(storageKey string) (string, error) {
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return "", fmt.Errorf("sqlstore: storage key is required")
	}
	return tokenCacheKeyPrefix + "::" + url.PathEscape(storageKey), nil
}

func (s *CachedTokenStore) Load(ctx context.Context) (string, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached token store is not configured")
	}
	cacheKey, err := TokenCacheKey(s.storageKey)
	if err != nil {
		return "", err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (string, error) {
		return s.base.Load(ctx)
	})
}

func (s *CachedTokenStore) Store(ctx context.Context, token string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token store is not configured")
	}
	if err := s.base.Store(ctx, token); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedTokenStore) Clear(ctx context.Context) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token store is not configured")
	}
	if err := s.base.Clear(ctx); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedTokenStore) invalidate(ctx context.Context) error {
	cacheKey, err := TokenCacheKey(s.storageKey)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.TokenStore = (*CachedTokenStore)(nil)
