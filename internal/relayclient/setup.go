package relayclient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RegisterWithRetry retries Register against transient failures with
// exponential backoff, the way the teacher's registration flow retries
// RequestRegistration against an unavailable hub. Register and Activate are
// setup-time, user-present calls, so setup is the one place this package
// reaches for a stateful backoff.BackOff rather than the supervisor's pure
// formula.
func (c *Client) RegisterWithRetry(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	bo := newSetupBackoff()
	for {
		resp, err := c.Register(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !isRetryableSetupError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		interval := bo.NextBackOff()
		slog.Warn("relay registration failed, retrying", "error", err, "backoff", interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// ActivateWithRetry is Activate's equivalent of RegisterWithRetry. The
// activation code is single-use, so this only retries on transport-level
// failure, not on a protocol rejection of the code itself.
func (c *Client) ActivateWithRetry(ctx context.Context, req ActivateRequest) (*ActivateResponse, error) {
	bo := newSetupBackoff()
	for {
		resp, err := c.Activate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !isRetryableSetupError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		interval := bo.NextBackOff()
		slog.Warn("relay activation failed, retrying", "error", err, "backoff", interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func newSetupBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}

func isRetryableSetupError(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
