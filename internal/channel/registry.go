package channel

import "github.com/myndhyve/relay-agent/internal/envelope"

// Registry is the process-wide channel-tag -> plugin map (spec.md §4.3).
// Not thread-safe for writes: registration happens once, at module init,
// before any goroutine reads it.
type Registry struct {
	plugins map[envelope.Channel]Plugin
}

func NewRegistry() *Registry {
	return &Registry{plugins: make(map[envelope.Channel]Plugin)}
}

// Register adds or replaces a plugin by its identity's channel tag.
// Last write for a given tag wins.
func (r *Registry) Register(p Plugin) {
	if r == nil || p == nil {
		return
	}
	if r.plugins == nil {
		r.plugins = make(map[envelope.Channel]Plugin)
	}
	r.plugins[p.Identity().Channel] = p
}

// Lookup returns the plugin registered for tag, or nil.
func (r *Registry) Lookup(tag envelope.Channel) Plugin {
	if r == nil {
		return nil
	}
	return r.plugins[tag]
}

// ListAll returns every registered plugin.
func (r *Registry) ListAll() []Plugin {
	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	return out
}

// ListSupported returns plugins whose identity reports IsSupported.
func (r *Registry) ListSupported() []Plugin {
	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if p.Identity().IsSupported {
			out = append(out, p)
		}
	}
	return out
}

// Default is the process-wide registry populated by each platform
// package's init().
var Default = NewRegistry()
