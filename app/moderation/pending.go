package moderation

import (
	"sync"
)

type pendingEntry[T any] struct {
	item T
	refs []MessageRef
}

// pendingStore is a mutex-guarded keyed map of outstanding moderation
// decisions. Take implements the per-key single-writer rule: the first action
// removes the entry, later actions find nothing.
type pendingStore[T any] struct {
	mu    sync.Mutex
	items map[string]pendingEntry[T]
}

func newPendingStore[T any]() *pendingStore[T] {
	return &pendingStore[T]{
		items: make(map[string]pendingEntry[T]),
	}
}

func (s *pendingStore[T]) Put(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = pendingEntry[T]{item: item}
}

// SetRefs attaches delivered message handles to an entry. It returns false
// when the entry was already resolved while the broadcast was in flight; the
// caller then retracts the freshly delivered copies itself.
func (s *pendingStore[T]) SetRefs(id string, refs []MessageRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return false
	}
	entry.refs = refs
	s.items[id] = entry
	return true
}

// Take removes and returns the entry. The second concurrent Take on the same
// id reports false.
func (s *pendingStore[T]) Take(id string) (pendingEntry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	return entry, ok
}

// Restore puts back an entry taken by a publish action whose every target
// failed, so pressing the action again retries it.
func (s *pendingStore[T]) Restore(id string, entry pendingEntry[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = entry
}

func (s *pendingStore[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *pendingStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
