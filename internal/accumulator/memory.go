package accumulator

import (
	"context"
	"sync"
)

// MemStore is an in-process Store. It implements Reverter so a failed
// Publish leaves no write behind.
type MemStore struct {
	mu    sync.Mutex
	total uint32
	set   bool
	puts  int

	prevTotal uint32
	prevSet   bool
	undo      bool
}

func NewMemStore() *MemStore { return &MemStore{} }

// NewMemStoreWith returns a store already holding total.
func NewMemStoreWith(total uint32) *MemStore { return &MemStore{total: total, set: true} }

func (s *MemStore) Get(context.Context) (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.set, nil
}

func (s *MemStore) Put(_ context.Context, total uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevTotal, s.prevSet, s.undo = s.total, s.set, true
	s.total, s.set = total, true
	s.puts++
	return nil
}

// Revert undoes the most recent Put. It is a no-op when there is none.
func (s *MemStore) Revert(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.undo {
		return nil
	}
	s.total, s.set, s.undo = s.prevTotal, s.prevSet, false
	s.puts--
	return nil
}

// Puts returns how many writes the store holds; reverted writes are not
// counted.
func (s *MemStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// MemNotifier records published events in order.
type MemNotifier struct {
	mu     sync.Mutex
	events []Event
}

func NewMemNotifier() *MemNotifier { return &MemNotifier{} }

func (n *MemNotifier) Publish(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (n *MemNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}
