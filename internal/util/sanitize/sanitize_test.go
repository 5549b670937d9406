package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/myndhyve/relay-agent/internal/envelope"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"empty", "", 100, ""},
		{"normal", "bash", 100, "bash"},
		{"with control chars", "ba\x00sh\x07", 100, "bash"},
		{"truncate", "very long title", 8, "very lon"},
		{"trim whitespace", "  hello  ", 100, "hello"},
		{"unicode", "日本語タイトル", 100, "日本語タイトル"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Title(tt.input, tt.maxLen)
			assert.Equal(t, tt.want, got, "Title(%q, %d)", tt.input, tt.maxLen)
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(""))
	assert.Equal(t, "hello world", Text("hello world"))
	assert.Equal(t, "click here", Text(`<a href="javascript:alert(1)">click here</a>`))
	assert.Equal(t, "bold", Text("<b>bold</b>"))
}

func TestEnvelope_SanitizesFreeTextFields(t *testing.T) {
	in := envelope.Ingress{
		Text:        "<script>alert(1)</script>hi",
		GroupName:   "<b>Friends</b>",
		PeerDisplay: "<i>Alex</i>",
	}
	Envelope(&in)
	assert.Equal(t, "hi", in.Text)
	assert.Equal(t, "Friends", in.GroupName)
	assert.Equal(t, "Alex", in.PeerDisplay)
}
