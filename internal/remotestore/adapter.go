// Package remotestore implements the remote-store half of Secret Sync
// (§4.15 "upload to remote store"): routing a canonical key to a backend
// path, then fetch-compare-then-create-or-update against an Adapter.
package remotestore

import "context"

// Adapter is a remote secret store capable of reading and writing one
// key at a path. Implementations are responsible for their own auth and
// transport retries.
type Adapter interface {
	Name() string
	Get(ctx context.Context, path, key string) (value string, found bool, err error)
	Create(ctx context.Context, path, key, value string) error
	Update(ctx context.Context, path, key, value string) error
}
