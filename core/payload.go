package core

// Payload is the opaque input/output container passed between tasks and
// agents. The engine never inspects payload contents; helpers exist purely
// for agent-side convenience.
type Payload map[string]any

// String returns the string value for key, or "" if absent or not a string.
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy so callers can hand a payload to the engine
// without sharing the map.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	cp := make(Payload, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}
