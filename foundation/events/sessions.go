package events

import (
	"time"
)

// session tracks one connected subscriber. The rooms set and lastSeen
// time are guarded by the bus lock.
type session struct {
	id       string
	ch       chan Event
	rooms    map[string]struct{}
	lastSeen time.Time
}

// Connect registers a subscriber and returns its delivery channel. The
// session is joined to the default room. Connecting an id that already
// exists replaces the previous session, closing its channel.
func (b *Bus) Connect(id string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, exists := b.sessions[id]; exists {
		delete(b.sessions, id)
		close(old.ch)
	}

	ses := session{
		id:       id,
		ch:       make(chan Event, sessionBuffer),
		rooms:    map[string]struct{}{RoomDefault: {}},
		lastSeen: time.Now().UTC(),
	}
	b.sessions[id] = &ses

	b.evHandler("events: connect: session[%s] joined room[%s]", id, RoomDefault)

	return ses.ch
}

// Disconnect removes the subscriber and closes its channel. Safe to call
// for an unknown id.
func (b *Bus) Disconnect(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ses, exists := b.sessions[id]
	if !exists {
		return
	}

	delete(b.sessions, id)
	delete(b.interests, id)
	close(ses.ch)

	b.evHandler("events: disconnect: session[%s]", id)
}

// Touch marks the session as active now. Transports call this on every
// received frame so idle cleanup spares live connections.
func (b *Bus) Touch(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ses, exists := b.sessions[id]; exists {
		ses.lastSeen = time.Now().UTC()
	}
}

// CleanupInactive disconnects every session idle longer than maxIdle and
// reports how many were removed.
func (b *Bus) CleanupInactive(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)

	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int
	for id, ses := range b.sessions {
		if ses.lastSeen.After(cutoff) {
			continue
		}

		delete(b.sessions, id)
		delete(b.interests, id)
		close(ses.ch)
		removed++

		b.evHandler("events: cleanup: session[%s] idle since %v", id, ses.lastSeen)
	}

	return removed
}

// JoinRoom adds the session to a room.
func (b *Bus) JoinRoom(id string, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ses, exists := b.sessions[id]; exists {
		ses.rooms[room] = struct{}{}
	}
}

// LeaveRoom removes the session from a room.
func (b *Bus) LeaveRoom(id string, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ses, exists := b.sessions[id]; exists {
		delete(ses.rooms, room)
	}
}

// Subscribe narrows the session's deliveries to the given event types.
// The value "all" restores delivery of every type. Calling Subscribe
// again replaces the previous interest set.
func (b *Bus) Subscribe(id string, types ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	b.interests[id] = set

	b.evHandler("events: subscribe: session[%s] types%v", id, types)
}

// Unsubscribe clears the session's interest set so every type is
// delivered again.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.interests, id)
}
