package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// credentialRecord is the single durable row per storage key. At most one
// credential is active per key; upserts replace the token in place.
type credentialRecord struct {
	bun.BaseModel `bun:"table:auth_credentials,alias:ac"`

	ID         string    `bun:"id,pk"`
	StorageKey string    `bun:"storage_key,notnull,unique"`
	Token      string    `bun:"token,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
