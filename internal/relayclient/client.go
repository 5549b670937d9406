// Package relayclient wraps the cloud control plane's HTTP contract
// (spec.md §4.4): register, activate, heartbeat, sendInbound,
// claimOutbound, ackOutbound. Every call carries a bounded timeout and
// bearer auth, and every error is classified into the taxonomy in
// errors.go so callers (heartbeat loop, outbound poller, supervisor) can
// react without re-deriving HTTP semantics.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/myndhyve/relay-agent/internal/envelope"
)

const defaultTimeout = 15 * time.Second

// Client is the agent-side handle to the cloud control plane.
type Client struct {
	baseURL    string
	httpClient *http.Client

	deviceToken    string
	tokenExpiresAt time.Time
}

// New creates a Client against baseURL (e.g. "https://relay.myndhyve.app").
// httpClient may be nil to use a default client with the spec's 15s
// timeout; tests inject one pointed at an httptest.Server.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// SetCredentials installs the device token obtained from Activate (or
// loaded from disk on a restart). Per spec.md §5 this is read-only from
// the agent's perspective once activation completes, so no lock is taken.
func (c *Client) SetCredentials(deviceToken string, expiresAt time.Time) {
	c.deviceToken = deviceToken
	c.tokenExpiresAt = expiresAt
}

// tokenExpired reports whether the locally-known token has already
// passed its expiry, letting the client short-circuit calls without a
// round trip (spec.md §4.4: "refuses to make calls past it").
func (c *Client) tokenExpired(now time.Time) bool {
	return c.deviceToken == "" || !now.Before(c.tokenExpiresAt)
}

type RegisterRequest struct {
	Channel       envelope.Channel `json:"channel"`
	Label         string           `json:"label"`
	UserAuthToken string           `json:"-"`
}

type RegisterResponse struct {
	RelayID        string `json:"relayId"`
	ActivationCode string `json:"activationCode"`
}

// Register proves ownership with the end user's credential and obtains a
// relay id plus a short-lived activation code.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	err := c.do(ctx, http.MethodPost, "/v1/relays/register", req.UserAuthToken, req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type DeviceMeta struct {
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	Hostname string `json:"hostname"`
}

type ActivateRequest struct {
	RelayID        string     `json:"relayId"`
	ActivationCode string     `json:"activationCode"`
	CLIVersion     string     `json:"cliVersion"`
	DeviceMeta     DeviceMeta `json:"deviceMeta"`
}

type ActivateResponse struct {
	DeviceToken             string    `json:"deviceToken"`
	TokenExpiresAt          time.Time `json:"tokenExpiresAt"`
	HeartbeatIntervalSec    int       `json:"heartbeatIntervalSec"`
	OutboundPollIntervalSec int       `json:"outboundPollIntervalSec"`
}

// Activate exchanges a single-use activation code for a device token.
func (c *Client) Activate(ctx context.Context, req ActivateRequest) (*ActivateResponse, error) {
	var resp ActivateResponse
	err := c.do(ctx, http.MethodPost, "/v1/relays/activate", "", req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// HeartbeatStatus is the coarse status reported on every heartbeat.
type HeartbeatStatus string

const (
	HeartbeatConnected HeartbeatStatus = "connected"
	HeartbeatDegraded  HeartbeatStatus = "degraded"
	HeartbeatOffline   HeartbeatStatus = "offline"
)

type HeartbeatRequest struct {
	Status         HeartbeatStatus `json:"status"`
	UptimeSec      int64           `json:"uptimeSec"`
	PlatformStatus string          `json:"platformStatus"`
}

// Heartbeat reports the agent's current status for relayID.
func (c *Client) Heartbeat(ctx context.Context, relayID string, req HeartbeatRequest) error {
	path := fmt.Sprintf("/v1/relays/%s/heartbeat", relayID)
	return c.doAuthed(ctx, http.MethodPost, path, req, nil)
}

// SendInbound forwards an ingress envelope. Idempotent on platformMessageId
// server-side; at-least-once from the agent's side.
func (c *Client) SendInbound(ctx context.Context, relayID string, in envelope.Ingress) error {
	path := fmt.Sprintf("/v1/relays/%s/inbound", relayID)
	return c.doAuthed(ctx, http.MethodPost, path, in, nil)
}

type claimOutboundRequest struct {
	Max int `json:"max"`
}

type claimOutboundResponse struct {
	Items []envelope.WorkItem `json:"items"`
}

// ClaimOutbound returns zero or more pending work items for relayID.
func (c *Client) ClaimOutbound(ctx context.Context, relayID string, max int) ([]envelope.WorkItem, error) {
	path := fmt.Sprintf("/v1/relays/%s/outbound/claim", relayID)
	var resp claimOutboundResponse
	if err := c.doAuthed(ctx, http.MethodPost, path, claimOutboundRequest{Max: max}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AckOutbound completes a claimed work item with the delivery result.
func (c *Client) AckOutbound(ctx context.Context, relayID, workID string, ack envelope.AckRequest) error {
	ack.WorkID = workID
	path := fmt.Sprintf("/v1/relays/%s/outbound/%s/ack", relayID, workID)
	return c.doAuthed(ctx, http.MethodPost, path, ack, nil)
}

// doAuthed performs a bearer-authenticated call, refusing locally if the
// known token has already expired (spec.md §4.4).
func (c *Client) doAuthed(ctx context.Context, method, path string, body, out any) error {
	if c.tokenExpired(time.Now()) {
		return &DeviceTokenExpiredError{}
	}
	return c.do(ctx, method, path, c.deviceToken, body, out)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if cerr := classifyStatus(resp.StatusCode, string(data)); cerr != nil {
		return cerr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
