package imessage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/util/testutil"
)

const testSchema = `
CREATE TABLE message (ROWID INTEGER PRIMARY KEY, guid TEXT, text TEXT, handle_id INTEGER, date INTEGER, is_from_me INTEGER, cache_has_attachments INTEGER);
CREATE TABLE chat (ROWID INTEGER PRIMARY KEY, chat_identifier TEXT, group_id TEXT, display_name TEXT);
CREATE TABLE handle (ROWID INTEGER PRIMARY KEY, id TEXT);
CREATE TABLE chat_message_join (chat_id INTEGER, message_id INTEGER);
CREATE TABLE attachment (ROWID INTEGER PRIMARY KEY, filename TEXT, mime_type TEXT, transfer_name TEXT, total_bytes INTEGER);
CREATE TABLE message_attachment_join (message_id INTEGER, attachment_id INTEGER);
`

func newFixtureDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return path
}

func seed(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

type fakeBridge struct {
	mu     sync.Mutex
	sends  []string
	groups []bool
	err    error
}

func (b *fakeBridge) Send(ctx context.Context, to, text string, isGroup bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sends = append(b.sends, to+"|"+text)
	b.groups = append(b.groups, isGroup)
	return b.err
}

func TestAdapter_Identity(t *testing.T) {
	a := New(Config{})
	id := a.Identity()
	assert.Equal(t, envelope.ChanneliMessage, id.Channel)
}

func TestAdapter_Deliver_NotConnectedIsRetryable(t *testing.T) {
	a := New(Config{Bridge: &fakeBridge{}})
	res := a.Deliver(context.Background(), envelope.Egress{ConversationID: "iMessage;-;+1", Text: "hi"})
	assert.False(t, res.Success)
	assert.True(t, res.Retryable)
}

func TestAdapter_Deliver_SendErrorIsNotRetryable(t *testing.T) {
	a := New(Config{Bridge: &fakeBridge{err: &SendError{Msg: "no such chat"}}})
	a.status.Set(channel.StatusConnected)
	res := a.Deliver(context.Background(), envelope.Egress{ConversationID: "iMessage;-;+1", Text: "hi"})
	assert.False(t, res.Success)
	assert.False(t, res.Retryable)
}

func TestAdapter_Deliver_GenericErrorIsRetryable(t *testing.T) {
	a := New(Config{Bridge: &fakeBridge{err: assert.AnError}})
	a.status.Set(channel.StatusConnected)
	res := a.Deliver(context.Background(), envelope.Egress{ConversationID: "iMessage;-;+1", Text: "hi"})
	assert.False(t, res.Success)
	assert.True(t, res.Retryable)
}

func TestAdapter_Deliver_SuccessMarksGroupByConversationPrefix(t *testing.T) {
	bridge := &fakeBridge{}
	a := New(Config{Bridge: bridge})
	a.status.Set(channel.StatusConnected)
	res := a.Deliver(context.Background(), envelope.Egress{ConversationID: "chat987654321", Text: "hi all"})
	assert.True(t, res.Success)
	require.Len(t, bridge.sends, 1)
	assert.True(t, bridge.groups[0], "a chat-prefixed conversation id must be sent as a group message")
}

func TestAdapter_Start_SeedsWatermarkAndSkipsHistory(t *testing.T) {
	path := newFixtureDB(t)
	seed(t, path,
		`INSERT INTO handle (ROWID, id) VALUES (1, '+15551234567')`,
		`INSERT INTO chat (ROWID, chat_identifier, display_name) VALUES (1, 'iMessage;-;+15551234567', '')`,
		`INSERT INTO message (ROWID, guid, text, handle_id, date, is_from_me, cache_has_attachments) VALUES (1, 'old-guid', 'historical message', 1, 0, 0, 0)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 1)`,
	)

	a := New(Config{DBPath: path, Bridge: &fakeBridge{}})

	var received []envelope.Ingress
	var mu sync.Mutex
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- a.Start(ctx, func(ctx context.Context, in envelope.Ingress) error {
			mu.Lock()
			received = append(received, in)
			mu.Unlock()
			return nil
		})
	}()

	testutil.RequireEventually(t, func() bool {
		return a.GetStatus() == channel.StatusConnected
	}, "adapter must reach connected status once Start's poll loop is running")

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, received, "pre-existing message must not be replayed")
	assert.Equal(t, channel.StatusDisconnected, a.GetStatus())
}

func TestAdapter_PollOnce_ForwardsNewMessageAndAdvancesWatermark(t *testing.T) {
	path := newFixtureDB(t)
	seed(t, path,
		`INSERT INTO handle (ROWID, id) VALUES (1, '+15551234567')`,
		`INSERT INTO chat (ROWID, chat_identifier, display_name) VALUES (1, 'iMessage;-;+15551234567', '')`,
	)

	a := New(Config{DBPath: path, Bridge: &fakeBridge{}})
	db, err := openReadOnly(path)
	require.NoError(t, err)
	defer db.Close()

	max, err := maxRowID(context.Background(), db)
	require.NoError(t, err)
	a.watermark.Store(max)

	seed(t, path,
		`INSERT INTO message (ROWID, guid, text, handle_id, date, is_from_me, cache_has_attachments) VALUES (1, 'new-guid', 'hello there', 1, 0, 0, 0)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 1)`,
	)

	var received []envelope.Ingress
	err = a.pollOnce(context.Background(), db, func(ctx context.Context, in envelope.Ingress) error {
		received = append(received, in)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "hello there", received[0].Text)
	assert.EqualValues(t, 1, a.watermark.Load())
}

func TestAdapter_PollOnce_WatermarkAdvancesEvenOnForwardFailure(t *testing.T) {
	path := newFixtureDB(t)
	seed(t, path,
		`INSERT INTO handle (ROWID, id) VALUES (1, '+1')`,
		`INSERT INTO chat (ROWID, chat_identifier, display_name) VALUES (1, 'iMessage;-;+1', '')`,
		`INSERT INTO message (ROWID, guid, text, handle_id, date, is_from_me, cache_has_attachments) VALUES (1, 'g1', 'hi', 1, 0, 0, 0)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 1)`,
	)

	a := New(Config{DBPath: path, Bridge: &fakeBridge{}})
	db, err := openReadOnly(path)
	require.NoError(t, err)
	defer db.Close()

	err = a.pollOnce(context.Background(), db, func(ctx context.Context, in envelope.Ingress) error {
		return assert.AnError
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.watermark.Load(), "watermark must advance regardless of callback outcome")
}

func TestAdapter_PollOnce_OrdersCallsByRowIDAndSurvivesAMidBatchFailure(t *testing.T) {
	path := newFixtureDB(t)
	seed(t, path,
		`INSERT INTO handle (ROWID, id) VALUES (1, '+1')`,
		`INSERT INTO chat (ROWID, chat_identifier, display_name) VALUES (1, 'iMessage;-;+1', '')`,
		`INSERT INTO message (ROWID, guid, text, handle_id, date, is_from_me, cache_has_attachments) VALUES (1, 'g1', 'one', 1, 0, 0, 0)`,
		`INSERT INTO message (ROWID, guid, text, handle_id, date, is_from_me, cache_has_attachments) VALUES (2, 'g2', 'two', 1, 1, 0, 0)`,
		`INSERT INTO message (ROWID, guid, text, handle_id, date, is_from_me, cache_has_attachments) VALUES (3, 'g3', 'three', 1, 2, 0, 0)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 1)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 2)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 3)`,
	)

	a := New(Config{DBPath: path, Bridge: &fakeBridge{}})
	db, err := openReadOnly(path)
	require.NoError(t, err)
	defer db.Close()

	var received []string
	err = a.pollOnce(context.Background(), db, func(ctx context.Context, in envelope.Ingress) error {
		received = append(received, in.PlatformMessageID)
		if in.PlatformMessageID == "g2" {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2", "g3"}, received, "onInbound must be called in ROWID order, and a failure on g2 must not stop g3")
	assert.EqualValues(t, 3, a.watermark.Load(), "watermark must advance to the highest ROWID in the tick regardless of a mid-batch callback failure")
}

func TestAdapter_PollOnce_SkipsMessageWithNoTextAndNoAttachments(t *testing.T) {
	path := newFixtureDB(t)
	seed(t, path,
		`INSERT INTO handle (ROWID, id) VALUES (1, '+1')`,
		`INSERT INTO chat (ROWID, chat_identifier, display_name) VALUES (1, 'iMessage;-;+1', '')`,
		`INSERT INTO message (ROWID, guid, text, handle_id, date, is_from_me, cache_has_attachments) VALUES (1, 'g1', '', 1, 0, 0, 0)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 1)`,
	)

	a := New(Config{DBPath: path, Bridge: &fakeBridge{}})
	db, err := openReadOnly(path)
	require.NoError(t, err)
	defer db.Close()

	var callCount int
	err = a.pollOnce(context.Background(), db, func(ctx context.Context, in envelope.Ingress) error {
		callCount++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, callCount)
	assert.EqualValues(t, 1, a.watermark.Load(), "watermark still advances for a dropped message")
}
