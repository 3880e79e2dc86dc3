// Package dedup shares one in-flight completion call across concurrent
// identical requests. Entries leave the in-flight table as soon as the
// shared call settles, success or failure, so a failed call is never
// replayed to later requests.
package dedup

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/davidbz/markl/internal/domain"
)

// Deduplicator coalesces concurrent calls with identical keys.
type Deduplicator struct {
	group singleflight.Group
}

// New creates an empty deduplicator.
func New() *Deduplicator {
	return &Deduplicator{}
}

// Do executes fn once per key among concurrent callers. The dedupe marker
// keeps these keys from ever colliding with cache keys. Joiners that are
// canceled stop waiting, but the shared call keeps running for the rest.
func (d *Deduplicator) Do(
	ctx context.Context,
	key string,
	fn func() (*domain.Result, error),
) (*domain.Result, bool, error) {
	ch := d.group.DoChan(key+":dedupe", func() (interface{}, error) {
		return fn()
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		result, _ := res.Val.(*domain.Result)
		return result, res.Shared, nil
	}
}
