package config_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myndhyve/relay-agent/internal/config"
)

func TestRefreshCredentials_DedupsConcurrentCallers(t *testing.T) {
	var calls atomic.Int32
	start := make(chan struct{})

	refreshFn := func(ctx context.Context) (*config.Credentials, error) {
		calls.Add(1)
		<-start
		return &config.Credentials{IDToken: "fresh"}, nil
	}

	const n = 10
	results := make([]*config.Credentials, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = config.RefreshCredentials(context.Background(), "relay-1", refreshFn)
		}(i)
	}

	time.Sleep(50 * time.Millisecond) // let all goroutines enter Do before unblocking
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "expected exactly one in-flight refresh")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh", results[i].IDToken)
	}
}

func TestRefreshCredentials_SlotClearsAfterCompletion(t *testing.T) {
	var calls atomic.Int32
	refreshFn := func(ctx context.Context) (*config.Credentials, error) {
		calls.Add(1)
		return &config.Credentials{IDToken: "fresh"}, nil
	}

	_, err := config.RefreshCredentials(context.Background(), "relay-2", refreshFn)
	require.NoError(t, err)
	_, err = config.RefreshCredentials(context.Background(), "relay-2", refreshFn)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load(), "second call after completion must trigger a new refresh")
}

func TestRefreshCredentials_DistinctKeysDoNotShare(t *testing.T) {
	var calls atomic.Int32
	start := make(chan struct{})
	refreshFn := func(ctx context.Context) (*config.Credentials, error) {
		calls.Add(1)
		<-start
		return &config.Credentials{IDToken: "fresh"}, nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); config.RefreshCredentials(context.Background(), "relay-a", refreshFn) }()
	go func() { defer wg.Done(); config.RefreshCredentials(context.Background(), "relay-b", refreshFn) }()

	time.Sleep(50 * time.Millisecond)
	close(start)
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load(), "distinct relayIds must not dedup against each other")
}

func TestRefreshCredentials_PropagatesError(t *testing.T) {
	wantErr := errors.New("refresh failed")
	refreshFn := func(ctx context.Context) (*config.Credentials, error) {
		return nil, wantErr
	}

	creds, err := config.RefreshCredentials(context.Background(), "relay-3", refreshFn)
	assert.Nil(t, creds)
	assert.ErrorIs(t, err, wantErr)
}
