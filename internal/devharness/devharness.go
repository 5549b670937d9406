// Package devharness implements the relay agent's developer-facing test
// helpers (spec.md §4.12): synthesizing schema-valid envelopes and mock
// webhook payloads for `dev envelope create`, `dev envelope validate`, and
// `dev webhook test`.
package devharness

import (
	"time"

	"github.com/google/uuid"

	"github.com/myndhyve/relay-agent/internal/envelope"
)

// TestEnvelopeOptions parameterizes createTestEnvelope. Zero values pick
// the spec's defaults.
type TestEnvelopeOptions struct {
	Channel        envelope.Channel
	Text           string
	PeerID         string
	ConversationID string
	IsGroup        bool
	GroupName      string
}

// CreateTestEnvelope builds a schema-valid ingress envelope for exercising
// the pipeline without a live platform connection (spec.md §4.12).
func CreateTestEnvelope(opts TestEnvelopeOptions) envelope.Ingress {
	peerID := opts.PeerID
	if peerID == "" {
		peerID = "peer-" + string(opts.Channel) + "-001"
	}
	conversationID := opts.ConversationID
	if conversationID == "" {
		conversationID = "conv-" + string(opts.Channel) + "-test"
	}
	groupName := opts.GroupName
	if opts.IsGroup && groupName == "" {
		groupName = "Test Group"
	}

	return envelope.Ingress{
		Channel:           opts.Channel,
		PlatformMessageID: "test-" + uuid.NewString(),
		ConversationID:    conversationID,
		PeerID:            peerID,
		PeerDisplay:       "Test User",
		Text:              opts.Text,
		IsGroup:           opts.IsGroup,
		GroupName:         groupName,
		Timestamp:         time.Now(),
	}
}

// EnvelopeType is which envelope shape ValidateEnvelope classified input
// as.
type EnvelopeType string

const (
	EnvelopeIngress EnvelopeType = "ingress"
	EnvelopeEgress  EnvelopeType = "egress"
)

// ValidationReport is validateEnvelope's return shape.
type ValidationReport struct {
	Valid        bool         `json:"valid"`
	EnvelopeType EnvelopeType `json:"envelopeType"`
	Errors       []string     `json:"errors"`
}

// ValidateEnvelope classifies an arbitrary decoded-JSON map as ingress or
// egress and validates it against the corresponding schema. Discriminator
// per spec.md §4.12: data is ingress if it carries any of
// {peerId, platformMessageId, isGroup}, else egress.
func ValidateEnvelope(data map[string]any) ValidationReport {
	if looksLikeIngress(data) {
		in, err := decodeIngress(data)
		if err != nil {
			return ValidationReport{Valid: false, EnvelopeType: EnvelopeIngress, Errors: []string{err.Error()}}
		}
		if err := envelope.ValidateIngress(in); err != nil {
			return ValidationReport{Valid: false, EnvelopeType: EnvelopeIngress, Errors: validationErrors(err)}
		}
		return ValidationReport{Valid: true, EnvelopeType: EnvelopeIngress}
	}

	eg, err := decodeEgress(data)
	if err != nil {
		return ValidationReport{Valid: false, EnvelopeType: EnvelopeEgress, Errors: []string{err.Error()}}
	}
	if err := envelope.ValidateEgress(eg); err != nil {
		return ValidationReport{Valid: false, EnvelopeType: EnvelopeEgress, Errors: validationErrors(err)}
	}
	return ValidationReport{Valid: true, EnvelopeType: EnvelopeEgress}
}

func looksLikeIngress(data map[string]any) bool {
	for _, key := range []string{"peerId", "platformMessageId", "isGroup"} {
		if _, ok := data[key]; ok {
			return true
		}
	}
	return false
}

func validationErrors(err error) []string {
	if ve, ok := err.(*envelope.ValidationError); ok {
		return ve.Errors
	}
	return []string{err.Error()}
}
