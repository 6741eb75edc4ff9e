package events

// Upstream reports the connectivity of an external event source feeding
// the bus. The statistics endpoint surfaces this state.
type Upstream interface {
	IsConnected() bool
}

// NoopUpstream is the Upstream used when no external source is wired.
type NoopUpstream struct{}

// IsConnected always reports false.
func (NoopUpstream) IsConnected() bool {
	return false
}
