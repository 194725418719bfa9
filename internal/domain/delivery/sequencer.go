package delivery

import "sync"

// sequencer hands out one mutex per conversation so that the durable write
// and the fan-out of an event happen atomically with respect to other
// writers of the same conversation. Entries are reference counted and
// removed once the last holder releases, so the map stays bounded by the
// number of conversations with in-flight writes.
type sequencer struct {
	mu      sync.Mutex
	entries map[string]*sequencerEntry
}

type sequencerEntry struct {
	mu   sync.Mutex
	refs int
}

func newSequencer() *sequencer {
	return &sequencer{entries: make(map[string]*sequencerEntry)}
}

// Lock blocks until the caller holds the conversation's mutex and returns
// the matching unlock func.
func (s *sequencer) Lock(key string) func() {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &sequencerEntry{}
		s.entries[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		s.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.entries, key)
		}
		s.mu.Unlock()
	}
}
