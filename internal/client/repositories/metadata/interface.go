// Package metadata stores small key/value settings of the local store: the
// active account marker and the token sealing salt/verifier.
package metadata

import (
	"context"
)

// Repository is a key/value table. Get returns (nil, nil) for absent keys.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
}
