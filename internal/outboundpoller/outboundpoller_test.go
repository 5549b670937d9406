package outboundpoller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/outboundpoller"
	"github.com/myndhyve/relay-agent/internal/relayclient"
)

type fakeClient struct {
	mu       sync.Mutex
	items    []envelope.WorkItem
	claimErr error
	ackErr   error
	acked    []envelope.AckRequest
}

func (f *fakeClient) ClaimOutbound(ctx context.Context, relayID string, max int) ([]envelope.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	items := f.items
	f.items = nil
	return items, nil
}

func (f *fakeClient) AckOutbound(ctx context.Context, relayID, workID string, ack envelope.AckRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ack)
	return f.ackErr
}

type fakePlugin struct {
	result envelope.DeliverResult
	calls  []envelope.Egress
	mu     sync.Mutex
}

func (f *fakePlugin) Identity() channel.Identity                                     { return channel.Identity{} }
func (f *fakePlugin) Login(ctx context.Context) error                                { return nil }
func (f *fakePlugin) IsAuthenticated(ctx context.Context) bool                       { return true }
func (f *fakePlugin) Start(ctx context.Context, onInbound channel.InboundFunc) error { return nil }
func (f *fakePlugin) Deliver(ctx context.Context, eg envelope.Egress) envelope.DeliverResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, eg)
	return f.result
}
func (f *fakePlugin) GetStatus() channel.Status { return channel.StatusConnected }
func (f *fakePlugin) Logout()                   {}

func TestRun_DeliversClaimedItemsAndAcks(t *testing.T) {
	fc := &fakeClient{items: []envelope.WorkItem{
		{WorkID: "w1", Envelope: envelope.Egress{Channel: envelope.ChanneliMessage, ConversationID: "c1", Text: "hi"}},
	}}
	fp := &fakePlugin{result: envelope.DeliverResult{Success: true, PlatformMessageID: "pm1"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- outboundpoller.Run(ctx, fc, fp, "relay-1", 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Len(t, fp.calls, 1)
	require.Len(t, fc.acked, 1)
	assert.True(t, fc.acked[0].Success)
	assert.Equal(t, "pm1", fc.acked[0].PlatformMessageID)
}

func TestRun_AbortsOnDeviceTokenExpiredFromClaim(t *testing.T) {
	fc := &fakeClient{claimErr: &relayclient.DeviceTokenExpiredError{}}
	fp := &fakePlugin{}
	err := outboundpoller.Run(context.Background(), fc, fp, "relay-1", time.Hour)
	require.Error(t, err)
}

func TestRun_TransientClaimErrorDoesNotAbort(t *testing.T) {
	fc := &fakeClient{claimErr: &relayclient.TransientError{}}
	fp := &fakePlugin{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- outboundpoller.Run(ctx, fc, fp, "relay-1", 5*time.Millisecond) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
