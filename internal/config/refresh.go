package config

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// refreshGroup backs RefreshCredentials. It is package-level because the
// invariant it expresses — at most one in-flight refresh per relay — must
// hold across every caller in the process, not per call site. Within this
// repository only the package's tests call RefreshCredentials.
var refreshGroup singleflight.Group

// RefreshCredentials expresses the "concurrent-refresh deduplication"
// invariant inherited from the auth collaborator (spec.md §5): when
// multiple goroutines discover the stored user credentials have expired
// at once, exactly one refreshFn call runs for relayID; the rest await its
// result. The slot clears on completion (success or failure), so the next
// caller after that retries fresh.
func RefreshCredentials(ctx context.Context, relayID string, refreshFn func(ctx context.Context) (*Credentials, error)) (*Credentials, error) {
	v, err, _ := refreshGroup.Do(relayID, func() (any, error) {
		return refreshFn(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credentials), nil
}
