package devharness

import (
	"encoding/json"
	"fmt"

	"github.com/myndhyve/relay-agent/internal/envelope"
)

// decodeIngress/decodeEgress round-trip a generic decoded-JSON map into
// the typed envelope shape so envelope.ValidateIngress/ValidateEgress can
// run their field checks (spec.md §4.12's validateEnvelope operates on
// "unknown" input, i.e. not yet typed).
func decodeIngress(data map[string]any) (envelope.Ingress, error) {
	var in envelope.Ingress
	raw, err := json.Marshal(data)
	if err != nil {
		return in, fmt.Errorf("marshal input: %w", err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("input does not match the ingress shape: %w", err)
	}
	return in, nil
}

func decodeEgress(data map[string]any) (envelope.Egress, error) {
	var eg envelope.Egress
	raw, err := json.Marshal(data)
	if err != nil {
		return eg, fmt.Errorf("marshal input: %w", err)
	}
	if err := json.Unmarshal(raw, &eg); err != nil {
		return eg, fmt.Errorf("input does not match the egress shape: %w", err)
	}
	return eg, nil
}
