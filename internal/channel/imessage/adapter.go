// Package imessage is the iMessage channel adapter, the substantive
// implementation called out in spec.md §4.2: it reads the local Messages
// database for inbound polling and drives the macOS Messages app through
// AppleScript automation for outbound delivery.
package imessage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/metrics"
)

const pollInterval = 2 * time.Second

// Config configures an Adapter. DBPath defaults to the real Messages
// database location when empty; tests point it at a fixture instead.
type Config struct {
	DBPath string
	Bridge Bridge
}

// Adapter implements channel.Plugin for iMessage.
type Adapter struct {
	cfg    Config
	status *channel.StatusBox

	watermark atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(cfg Config) *Adapter {
	if cfg.Bridge == nil {
		cfg.Bridge = NewOSABridge()
	}
	return &Adapter{cfg: cfg, status: channel.NewStatusBox()}
}

func (a *Adapter) Identity() channel.Identity {
	id := channel.Identity{
		Channel:     envelope.ChanneliMessage,
		DisplayName: "iMessage",
	}
	if runtime.GOOS != "darwin" {
		id.UnsupportedReason = "iMessage requires macOS"
		return id
	}
	id.IsSupported = true
	return id
}

func (a *Adapter) Login(ctx context.Context) error {
	if runtime.GOOS != "darwin" {
		return &channel.PlatformUnavailableError{Msg: "iMessage requires macOS"}
	}
	db, err := openReadOnly(a.dbPath())
	if err != nil {
		return &channel.AuthRequiredError{Msg: fmt.Sprintf("cannot read Messages database: %v", err)}
	}
	defer db.Close()
	return nil
}

func (a *Adapter) IsAuthenticated(ctx context.Context) bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	db, err := openReadOnly(a.dbPath())
	if err != nil {
		return false
	}
	defer db.Close()
	return true
}

func (a *Adapter) GetStatus() channel.Status {
	return a.status.Get()
}

func (a *Adapter) Logout() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.status.Set(channel.StatusDisconnected)
}

// Start runs the inbound polling loop until ctx is cancelled or a fatal
// schema error occurs (spec.md §4.2's state machine and polling loop).
func (a *Adapter) Start(ctx context.Context, onInbound channel.InboundFunc) error {
	a.status.Set(channel.StatusConnecting)

	childCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer func() {
		a.status.Set(channel.StatusDisconnected)
		cancel()
	}()

	db, err := openReadOnly(a.dbPath())
	if err != nil {
		return fmt.Errorf("open chat database: %w", err)
	}
	defer db.Close()

	max, err := maxRowID(childCtx, db)
	if err != nil {
		return fmt.Errorf("seed watermark: %w", err)
	}
	a.watermark.Store(max)
	metrics.Watermark.WithLabelValues(string(envelope.ChanneliMessage)).Set(float64(max))

	a.status.Set(channel.StatusConnected)

	for {
		if err := a.pollOnce(childCtx, db, onInbound); err != nil {
			if isFatalSchemaError(err) {
				return err
			}
			slog.Warn("imessage: transient poll error", "error", err)
		}

		select {
		case <-childCtx.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}

func (a *Adapter) pollOnce(ctx context.Context, db *sql.DB, onInbound channel.InboundFunc) error {
	watermark := a.watermark.Load()
	rows, err := fetchNewMessages(ctx, db, watermark)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	var withAttachments []int64
	for _, r := range rows {
		if r.hasAttachments {
			withAttachments = append(withAttachments, r.rowID)
		}
	}
	var attachmentsByMsg map[int64][]attachmentRow
	if len(withAttachments) > 0 {
		attachmentsByMsg, err = fetchAttachments(ctx, db, withAttachments)
		if err != nil {
			return err
		}
	}

	for _, r := range rows {
		in, ok := normalize(r, attachmentsByMsg[r.rowID])
		if ok {
			if err := onInbound(ctx, in); err != nil {
				slog.Warn("imessage: inbound forward failed, dropping message", "error", err, "platformMessageId", in.PlatformMessageID)
			}
		}
		// Watermark advances whether or not the forward succeeded, and
		// whether or not normalization yielded a usable envelope: the
		// message is permanently skipped either way (spec.md §4.2, §9).
		if r.rowID > a.watermark.Load() {
			a.watermark.Store(r.rowID)
			metrics.Watermark.WithLabelValues(string(envelope.ChanneliMessage)).Set(float64(r.rowID))
		}
	}
	return nil
}

// isFatalSchemaError distinguishes a missing-table schema mismatch (fatal,
// spec.md §4.2) from transient "database is locked/busy" errors.
func isFatalSchemaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table")
}

// Deliver sends an egress envelope through the Messages automation bridge
// (spec.md §4.2 "Outbound").
func (a *Adapter) Deliver(ctx context.Context, eg envelope.Egress) envelope.DeliverResult {
	if a.GetStatus() != channel.StatusConnected {
		return envelope.DeliverResult{Success: false, Error: "imessage: not connected", Retryable: true}
	}

	isGroup := strings.HasPrefix(eg.ConversationID, "chat")
	if err := a.cfg.Bridge.Send(ctx, eg.ConversationID, eg.Text, isGroup); err != nil {
		var sendErr *SendError
		if errors.As(err, &sendErr) {
			return envelope.DeliverResult{Success: false, Error: sendErr.Error(), Retryable: false}
		}
		return envelope.DeliverResult{Success: false, Error: err.Error(), Retryable: true}
	}
	return envelope.DeliverResult{Success: true}
}

func (a *Adapter) dbPath() string {
	if a.cfg.DBPath != "" {
		return a.cfg.DBPath
	}
	return defaultDBPath()
}
