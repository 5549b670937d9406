package imessage

import "github.com/myndhyve/relay-agent/internal/channel"

func init() {
	channel.Default.Register(New(Config{}))
}
