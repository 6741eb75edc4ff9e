// Package events implements the real-time broadcast subsystem: an
// unbounded queue fed by non-blocking emitters, one background dispatcher
// delivering to live sessions by room, a rolling event history, and the
// routing of events to typed handlers.
package events

import (
	"sync"
	"time"
)

// maxHistory caps the rolling event history at the most recent entries.
const maxHistory = 1000

// sessionBuffer sizes each session's delivery channel. Since an event is
// dropped if the receiver is not ready, this arbitrary buffer gives a
// websocket writer enough room to not lose messages during a slow send.
const sessionBuffer = 100

// RoomBroadcast targets every connected session regardless of room.
const RoomBroadcast = "broadcast"

// RoomDefault is the room new sessions are joined to.
const RoomDefault = "blockchain"

// Set of event types emitted by the ledger boundary.
const (
	TypeCertificateIssued   = "certificate_issued"
	TypeCertificateVerified = "certificate_verified"
	TypeCertificateTraded   = "certificate_traded"
	TypeCertificateRetired  = "certificate_retired"
	TypeUpdate              = "blockchain_update"
)

// EventHandler defines a function that is called when events occur in the
// processing of dispatching.
type EventHandler func(v string, args ...any)

// Event is the structured record flowing through the bus.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Room      string         `json:"room"`
}

// Config represents the configuration required to construct the bus.
type Config struct {
	EvHandler EventHandler
	Upstream  Upstream
}

// Bus owns the event queue and the dispatcher goroutine. Producers never
// block: Publish appends to an unbounded queue and the dispatcher drains
// it in enqueue order. Memory is bounded by the rolling history; the
// queue itself only grows while the dispatcher is behind.
type Bus struct {
	evHandler EventHandler
	upstream  Upstream

	mu        sync.Mutex
	queue     []Event
	closed    bool
	history   []Event
	total     uint64
	sessions  map[string]*session
	interests map[string]map[string]struct{}

	wake chan struct{}
	shut chan struct{}
	wg   sync.WaitGroup
}

// New constructs the bus and starts its dispatcher.
func New(cfg Config) *Bus {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	upstream := cfg.Upstream
	if upstream == nil {
		upstream = NoopUpstream{}
	}

	b := Bus{
		evHandler: ev,
		upstream:  upstream,
		sessions:  make(map[string]*session),
		interests: make(map[string]map[string]struct{}),
		wake:      make(chan struct{}, 1),
		shut:      make(chan struct{}),
	}

	b.wg.Add(1)
	go b.dispatch()

	ev("events: bus started")

	return &b
}

// Shutdown stops intake of new events and waits for the dispatcher to
// drain the queue, bounded by the timeout. Session channels are closed
// once the dispatcher has exited.
func (b *Bus) Shutdown(timeout time.Duration) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.shut)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):

		// The dispatcher is still delivering; leave the session channels
		// open so it cannot send on a closed channel.
		b.evHandler("events: shutdown: drain timeout after %v", timeout)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ses := range b.sessions {
		delete(b.sessions, id)
		close(ses.ch)
	}

	b.evHandler("events: bus stopped")
}

// Publish enqueues the event for delivery; the call never blocks. Events
// are dispatched strictly in enqueue order. Note that callers usually
// enqueue after their ledger write returns, so dispatch order need not
// equal ledger append order under concurrent writers.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.Room == "" {
		evt.Room = RoomDefault
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.evHandler("events: publish: bus closed, dropped %s", evt.Type)
		return
	}
	b.queue = append(b.queue, evt)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// EmitCertificateIssued broadcasts an issuance to the default room.
func (b *Bus) EmitCertificateIssued(data map[string]any) {
	b.Publish(Event{Type: TypeCertificateIssued, Data: data})
}

// EmitCertificateVerified broadcasts a verification to the default room.
func (b *Bus) EmitCertificateVerified(data map[string]any) {
	b.Publish(Event{Type: TypeCertificateVerified, Data: data})
}

// EmitCertificateTraded broadcasts a trade to the default room.
func (b *Bus) EmitCertificateTraded(data map[string]any) {
	b.Publish(Event{Type: TypeCertificateTraded, Data: data})
}

// EmitCertificateRetired broadcasts a retirement to the default room.
func (b *Bus) EmitCertificateRetired(data map[string]any) {
	b.Publish(Event{Type: TypeCertificateRetired, Data: data})
}

// EmitUpdate broadcasts a general update to every connected session.
func (b *Bus) EmitUpdate(data map[string]any) {
	b.Publish(Event{Type: TypeUpdate, Data: data, Room: RoomBroadcast})
}

// =============================================================================

// Statistics is the live view returned by LiveStatistics.
type Statistics struct {
	TotalEvents       uint64         `json:"total_events"`
	ActiveConnections int            `json:"active_connections"`
	LastEvent         *Event         `json:"last_event,omitempty"`
	UpstreamConnected bool           `json:"upstream_connected"`
	EventTypes        map[string]int `json:"event_types"`
}

// LiveStatistics reports dispatch totals, connection counts and per-type
// counts over the rolling history.
func (b *Bus) LiveStatistics() Statistics {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Statistics{
		TotalEvents:       b.total,
		ActiveConnections: len(b.sessions),
		UpstreamConnected: b.upstream.IsConnected(),
		EventTypes:        make(map[string]int),
	}

	for i := range b.history {
		stats.EventTypes[b.history[i].Type]++
	}
	if len(b.history) > 0 {
		last := b.history[len(b.history)-1]
		stats.LastEvent = &last
	}

	return stats
}

// EventHistory returns up to limit of the most recently dispatched events
// in dispatch order, optionally filtered by type. The history is capped
// at the most recent 1000 events; there is no replay guarantee beyond it.
func (b *Bus) EventHistory(eventType string, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	for _, evt := range b.history {
		if eventType != "" && evt.Type != eventType {
			continue
		}
		out = append(out, evt)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// =============================================================================

// dispatch is the single background consumer. It drains the queue in
// enqueue order until shutdown, then performs a final drain and exits.
func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.wake:
			b.drain()

		case <-b.shut:
			b.evHandler("events: dispatch: received shut signal")
			b.drain()
			return
		}
	}
}

// drain delivers every queued event.
func (b *Bus) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		evt := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		b.deliver(evt)
	}
}

// deliver sends the event to every session joined to its room (or all
// sessions for a broadcast) whose interest set includes the type, then
// records it in the rolling history. Sends never block: a session that
// cannot keep up drops the event rather than stall the dispatcher, and a
// full channel on one session has no effect on the others.
func (b *Bus) deliver(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ses := range b.sessions {
		if evt.Room != RoomBroadcast {
			if _, joined := ses.rooms[evt.Room]; !joined {
				continue
			}
		}
		if !b.wants(ses.id, evt.Type) {
			continue
		}

		select {
		case ses.ch <- evt:
		default:
			b.evHandler("events: deliver: session[%s] buffer full, dropped %s", ses.id, evt.Type)
		}
	}

	b.total++
	b.history = append(b.history, evt)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
}

// wants reports whether the subscriber's interest set includes the event
// type. No declared set means all types. Expects the lock to be held.
func (b *Bus) wants(id string, eventType string) bool {
	set, exists := b.interests[id]
	if !exists || len(set) == 0 {
		return true
	}
	if _, all := set["all"]; all {
		return true
	}
	_, ok := set[eventType]
	return ok
}
