package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage implements Storage with an in-memory slice.
// Intended for tests and short-lived CLI runs.
type MemoryStorage struct {
	events []*Event
	closed bool
	mu     sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of the event.
func (s *MemoryStorage) Store(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageError("memory", "store", ErrStorageClosed)
	}

	eventCopy := *event
	s.events = append(s.events, &eventCopy)
	return nil
}

// Query returns copies of matching events, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *Query) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageError("memory", "query", ErrStorageClosed)
	}

	results := make([]*Event, 0)
	for _, event := range s.events {
		if query.Matches(event) {
			eventCopy := *event
			results = append(results, &eventCopy)
		}
	}

	sortNewestFirst(results)

	if query == nil {
		return results, nil
	}

	start := query.Offset
	if start > len(results) {
		return []*Event{}, nil
	}
	results = results[start:]

	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the number of matching events.
func (s *MemoryStorage) Count(ctx context.Context, query *Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, NewStorageError("memory", "count", ErrStorageClosed)
	}

	var n int64
	for _, event := range s.events {
		if query.Matches(event) {
			n++
		}
	}
	return n, nil
}

// DeleteBefore removes events older than cutoff.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, NewStorageError("memory", "delete_before", ErrStorageClosed)
	}

	kept := s.events[:0]
	var deleted int64
	for _, event := range s.events {
		if event.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept
	return deleted, nil
}

// Trim keeps the newest keep events.
func (s *MemoryStorage) Trim(ctx context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, NewStorageError("memory", "trim", ErrStorageClosed)
	}
	if keep < 0 || int64(len(s.events)) <= keep {
		return 0, nil
	}

	sortNewestFirst(s.events)
	deleted := int64(len(s.events)) - keep
	s.events = s.events[:keep]
	return deleted, nil
}

// Close marks the storage closed.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortNewestFirst(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}
