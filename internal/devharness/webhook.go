package devharness

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/myndhyve/relay-agent/internal/envelope"
)

// WebhookEventOptions parameterizes GenerateWebhookEvent.
type WebhookEventOptions struct {
	Channel   envelope.Channel
	EventType string
	Text      string
}

// GenerateWebhookEvent synthesizes a platform-specific mock payload for
// `dev webhook test` (spec.md §4.12). These shapes are used only by tests
// exercising a channel adapter's own webhook/event parsing, not by the
// production control-plane protocol.
func GenerateWebhookEvent(opts WebhookEventOptions) map[string]any {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	switch opts.Channel {
	case envelope.ChannelWhatsApp:
		return map[string]any{
			"object": "whatsapp_business_account",
			"entry": []map[string]any{{
				"id": id,
				"changes": []map[string]any{{
					"field": "messages",
					"value": map[string]any{
						"messaging_product": "whatsapp",
						"messages": []map[string]any{{
							"id":        fmt.Sprintf("wamid.%s", id),
							"timestamp": now,
							"type":      "text",
							"text":      map[string]any{"body": opts.Text},
						}},
					},
				}},
			}},
			"eventType": opts.EventType,
		}
	case envelope.ChannelSignal:
		return map[string]any{
			"envelope": map[string]any{
				"source":    "+15551234567",
				"timestamp": now,
				"dataMessage": map[string]any{
					"message":   opts.Text,
					"timestamp": now,
				},
			},
			"eventType": opts.EventType,
		}
	case envelope.ChanneliMessage:
		return map[string]any{
			"guid":      id,
			"text":      opts.Text,
			"timestamp": now,
			"eventType": opts.EventType,
		}
	default:
		return map[string]any{"eventType": opts.EventType, "text": opts.Text}
	}
}
