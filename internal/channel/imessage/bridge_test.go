package imessage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSendScript_DirectMessageUsesBuddy(t *testing.T) {
	script := buildSendScript("+15551234567", "hi", false)
	assert.Contains(t, script, "buddy")
	assert.Contains(t, script, "+15551234567")
}

func TestBuildSendScript_GroupUsesChat(t *testing.T) {
	script := buildSendScript("chat123456789", "hi", true)
	assert.Contains(t, script, "chat")
}

func TestBuildSendScript_MultiLineTextIsLiteralNewlineNotEscaped(t *testing.T) {
	script := buildSendScript("+15551234567", "line one\nline two", false)
	assert.Contains(t, script, "line one\nline two", "a literal newline in the text must survive into the script as a literal newline")
	assert.NotContains(t, script, `\n`, "AppleScript has no \\n escape; %q-style encoding would send the two characters backslash-n")
}

func TestAsQuote_EscapesQuotesAndBackslashesOnly(t *testing.T) {
	assert.Equal(t, `"hi"`, asQuote("hi"))
	assert.Equal(t, `"say \"hi\""`, asQuote(`say "hi"`))
	assert.Equal(t, `"a\\b"`, asQuote(`a\b`))
	assert.Equal(t, "\"line one\nline two\"", asQuote("line one\nline two"))
}

func TestIsSendErrorMessage(t *testing.T) {
	assert.True(t, isSendErrorMessage(`Messages got an error: Can't get chat "x".`))
	assert.False(t, isSendErrorMessage("execution error: some unrelated automation failure"))
}

func TestSendError_ImplementsError(t *testing.T) {
	var err error = &SendError{Msg: "boom"}
	assert.Equal(t, "boom", err.Error())
}
