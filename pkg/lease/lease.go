// Package lease provides a short-lived per-run lock so two workers never
// drive the same run concurrently. The version guard on the run record is
// the correctness mechanism; the lease just avoids wasted work and the
// noisy conflict errors a race produces.
package lease

import (
	"context"
	"time"
)

// Lease grants exclusive intent on a key for a bounded time. Acquire
// returns false when someone else holds the key; Release only succeeds for
// the holder's own token.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}
