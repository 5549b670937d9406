// Package envelope defines the wire shapes that cross the agent/cloud
// boundary (ingress and egress messages, media, and outbound work items)
// and the boundary-validating parser for them (spec.md §3, §9 "Envelope
// validation": producers build values, a separate parser checks them at
// boundaries — the Go type system alone is not treated as the schema).
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/myndhyve/relay-agent/internal/util/timefmt"
)

// Channel is the closed (but extensible) set of platforms a plugin bridges.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSignal   Channel = "signal"
	ChanneliMessage Channel = "imessage"
)

func (c Channel) Known() bool {
	switch c {
	case ChannelWhatsApp, ChannelSignal, ChanneliMessage:
		return true
	default:
		return false
	}
}

// MediaKind classifies an attachment.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaSticker  MediaKind = "sticker"
)

// IngressMedia is a platform-local attachment reference (platform -> cloud).
type IngressMedia struct {
	Kind     MediaKind `json:"kind"`
	Ref      string    `json:"ref"`
	MimeType string    `json:"mimeType,omitempty"`
	FileName string    `json:"fileName,omitempty"`
	Size     int64     `json:"size,omitempty"`
}

// EgressMedia is a cloud-hosted attachment reference (cloud -> platform).
type EgressMedia struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

// Ingress is a message observed on a source platform, normalized for
// forwarding to the cloud. See spec.md §3 "Ingress envelope".
type Ingress struct {
	Channel           Channel        `json:"channel"`
	PlatformMessageID string         `json:"platformMessageId"`
	ConversationID    string         `json:"conversationId"`
	PeerID            string         `json:"peerId"`
	PeerDisplay       string         `json:"peerDisplay,omitempty"`
	Text              string         `json:"text"`
	IsGroup           bool           `json:"isGroup"`
	GroupName         string         `json:"groupName,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
	ThreadID          string         `json:"threadId,omitempty"`
	ReplyToMessageID  string         `json:"replyToMessageId,omitempty"`
	Mentions          []string       `json:"mentions,omitempty"`
	Media             []IngressMedia `json:"media,omitempty"`
}

// MarshalTimestamp renders Timestamp in the ISO-8601 form the wire format
// requires (spec.md §6).
func (i Ingress) MarshalTimestamp() string {
	return timefmt.Format(i.Timestamp)
}

// ingressAlias has Ingress's exact field set, used to marshal/unmarshal
// Timestamp through MarshalTimestamp/timefmt without an infinite loop
// through Ingress's own MarshalJSON.
type ingressAlias Ingress

// MarshalJSON fixes Timestamp to millisecond-precision UTC
// (MarshalTimestamp), rather than relying on time.Time's default
// variable-precision RFC3339Nano encoding.
func (i Ingress) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ingressAlias
		Timestamp string `json:"timestamp"`
	}{
		ingressAlias: ingressAlias(i),
		Timestamp:    i.MarshalTimestamp(),
	})
}

// UnmarshalJSON accepts any timestamp value time.Time itself can parse
// (RFC3339 with or without sub-second precision), not just the
// millisecond form MarshalJSON emits.
func (i *Ingress) UnmarshalJSON(data []byte) error {
	var alias ingressAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*i = Ingress(alias)
	return nil
}

// Egress is a message the cloud wants delivered to a source platform.
// See spec.md §3 "Egress envelope".
type Egress struct {
	Channel          Channel       `json:"channel"`
	ConversationID   string        `json:"conversationId"`
	Text             string        `json:"text"`
	ThreadID         string        `json:"threadId,omitempty"`
	ReplyToMessageID string        `json:"replyToMessageId,omitempty"`
	Media            []EgressMedia `json:"media,omitempty"`
}

// WorkItem is one unit returned by the cloud's outbound-claim call.
type WorkItem struct {
	WorkID   string `json:"workId"`
	Envelope Egress `json:"envelope"`
	Attempt  int    `json:"attempt"`
}

// DeliverResult is what a channel plugin's Deliver returns. It never
// surfaces as an error — all failure modes are encoded here (spec.md §4.1).
type DeliverResult struct {
	Success           bool   `json:"success"`
	PlatformMessageID string `json:"platformMessageId,omitempty"`
	Error             string `json:"error,omitempty"`
	Retryable         bool   `json:"retryable,omitempty"`
}

// AckRequest is the body of an ackOutbound call.
type AckRequest struct {
	WorkID            string `json:"workId"`
	Success           bool   `json:"success"`
	PlatformMessageID string `json:"platformMessageId,omitempty"`
	Error             string `json:"error,omitempty"`
	Retryable         bool   `json:"retryable,omitempty"`
}

// ValidationError collects every constraint violation found while
// validating an envelope, per spec.md §3's field table.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("envelope invalid: %d error(s): %v", len(e.Errors), e.Errors)
}

func (e *ValidationError) add(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// ValidateIngress checks an Ingress value against spec.md §3's constraints.
// Returns nil if valid, or a *ValidationError listing every violation.
func ValidateIngress(in Ingress) error {
	ve := &ValidationError{}
	if !in.Channel.Known() {
		ve.add("channel %q is not a supported channel", in.Channel)
	}
	if in.PlatformMessageID == "" {
		ve.add("platformMessageId is required")
	}
	if in.ConversationID == "" {
		ve.add("conversationId is required")
	}
	if in.PeerID == "" {
		ve.add("peerId is required")
	}
	if in.Text == "" && len(in.Media) == 0 {
		ve.add("text may only be empty when media is present")
	}
	if in.Timestamp.IsZero() {
		ve.add("timestamp is required")
	}
	if in.GroupName != "" && !in.IsGroup {
		ve.add("groupName may only be set when isGroup is true")
	}
	for idx, m := range in.Media {
		if m.Ref == "" {
			ve.add("media[%d].ref is required", idx)
		}
		if !validMediaKind(m.Kind) {
			ve.add("media[%d].kind %q is not a known media kind", idx, m.Kind)
		}
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// ValidateEgress checks an Egress value against spec.md §3's constraints.
func ValidateEgress(eg Egress) error {
	ve := &ValidationError{}
	if !eg.Channel.Known() {
		ve.add("channel %q is not a supported channel", eg.Channel)
	}
	if eg.ConversationID == "" {
		ve.add("conversationId is required")
	}
	if eg.Text == "" && len(eg.Media) == 0 {
		ve.add("text may only be empty when media is present")
	}
	for idx, m := range eg.Media {
		if m.Kind == "" {
			ve.add("media[%d].kind is required", idx)
		}
		if m.URL == "" {
			ve.add("media[%d].url is required", idx)
		}
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validMediaKind(k MediaKind) bool {
	switch k {
	case MediaImage, MediaVideo, MediaAudio, MediaDocument, MediaSticker:
		return true
	default:
		return false
	}
}
