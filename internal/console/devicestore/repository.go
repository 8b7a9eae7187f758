// Package devicestore is the console's persistent device storage: a small
// SQLite key/value table that survives restarts of the console process.
package devicestore

import (
	"context"
)

// Repository is a byte-valued key/value store. Get returns (nil, nil) for an
// absent key and Delete of an absent key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
