package sanitize

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/myndhyve/relay-agent/internal/envelope"
)

// textPolicy strips any embedded HTML/script fragments a platform might
// pass through unescaped in message text, group names, or display names
// (link previews and some WhatsApp business payloads carry raw markup).
var textPolicy = bluemonday.StrictPolicy()

// Text sanitizes a single field crossing the agent/cloud boundary.
func Text(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// Envelope sanitizes the free-text fields of an ingress envelope in place,
// before it crosses the agent/cloud boundary (spec.md §9 "Envelope
// validation").
func Envelope(in *envelope.Ingress) {
	in.Text = Text(in.Text)
	in.GroupName = Text(in.GroupName)
	in.PeerDisplay = Text(in.PeerDisplay)
}

// Title sanitizes a terminal title by removing control characters
// and limiting the length.
func Title(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if b.Len() >= maxLen {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
