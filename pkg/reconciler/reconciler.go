// Package reconciler merges realtime events into a client-held view of a
// conversation. Events can arrive more than once (reconnects, replays), so
// every merge is idempotent; applying the same event twice leaves the state
// unchanged.
package reconciler

import "time"

// Message is the client-side shape of a timeline entry.
type Message struct {
	ID        string
	SenderID  string
	Text      *string
	Image     *string
	ReadBy    []string
	IsDeleted bool
	CreatedAt time.Time
}

// Timeline is one conversation's message list as a client sees it, ordered
// by arrival. Not safe for concurrent use.
type Timeline struct {
	messages []Message
	index    map[string]int
}

// NewTimeline builds an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{index: make(map[string]int)}
}

// Load replaces the timeline with a server fetch. The fetch is the source
// of truth after a reconnect.
func (t *Timeline) Load(messages []Message) {
	t.messages = make([]Message, len(messages))
	copy(t.messages, messages)
	t.index = make(map[string]int, len(messages))
	for i, m := range t.messages {
		t.index[m.ID] = i
	}
}

// ApplyCreated inserts a message unless its id is already present.
func (t *Timeline) ApplyCreated(m Message) {
	if _, ok := t.index[m.ID]; ok {
		return
	}
	t.index[m.ID] = len(t.messages)
	t.messages = append(t.messages, m)
}

// ApplyDeleted tombstones the message in place, keeping its timeline slot.
// An unknown id is inserted as a tombstone so a late create cannot
// resurrect content.
func (t *Timeline) ApplyDeleted(m Message) {
	m.Text = nil
	m.Image = nil
	m.IsDeleted = true

	i, ok := t.index[m.ID]
	if !ok {
		t.index[m.ID] = len(t.messages)
		t.messages = append(t.messages, m)
		return
	}
	readBy := t.messages[i].ReadBy
	m.ReadBy = readBy
	t.messages[i] = m
}

// ApplyReadReceipt unions the reader into the named messages' receipt sets.
// Receipts only grow; replays are no-ops.
func (t *Timeline) ApplyReadReceipt(readerID string, messageIDs []string) {
	for _, id := range messageIDs {
		i, ok := t.index[id]
		if !ok {
			continue
		}
		if containsReader(t.messages[i].ReadBy, readerID) {
			continue
		}
		t.messages[i].ReadBy = append(t.messages[i].ReadBy, readerID)
	}
}

// Messages returns the current view in order.
func (t *Timeline) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Get returns a message by id.
func (t *Timeline) Get(id string) (Message, bool) {
	i, ok := t.index[id]
	if !ok {
		return Message{}, false
	}
	return t.messages[i], true
}

// Len returns the number of timeline entries, tombstones included.
func (t *Timeline) Len() int {
	return len(t.messages)
}

func containsReader(readBy []string, readerID string) bool {
	for _, r := range readBy {
		if r == readerID {
			return true
		}
	}
	return false
}

// PresenceSet tracks which users are online from presence events. Events
// are level-based (online true/false), so replays converge.
type PresenceSet struct {
	online map[string]struct{}
}

// NewPresenceSet builds an empty set.
func NewPresenceSet() *PresenceSet {
	return &PresenceSet{online: make(map[string]struct{})}
}

// Apply folds one presence event into the set.
func (p *PresenceSet) Apply(userID string, online bool) {
	if online {
		p.online[userID] = struct{}{}
		return
	}
	delete(p.online, userID)
}

// IsOnline reports the tracked state of a user.
func (p *PresenceSet) IsOnline(userID string) bool {
	_, ok := p.online[userID]
	return ok
}

// Online lists the tracked online users.
func (p *PresenceSet) Online() []string {
	out := make([]string, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	return out
}
