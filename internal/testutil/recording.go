package testutil

import (
	"context"
	"sync"
)

// FlatStore mirrors codec.FlatStore so testutil does not import the codec.
type FlatStore interface {
	Enabled() bool
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, flat string) error
}

// RecordingStore wraps a FlatStore and records every read and write.
//
// Tests use it to assert on the whole-document I/O contract: every store
// call reads once and writes once, and a rejected batch writes nothing.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingStore struct {
	inner FlatStore

	mu     sync.Mutex
	reads  int
	writes []string
}

// NewRecordingStore wraps inner.
func NewRecordingStore(inner FlatStore) *RecordingStore {
	return &RecordingStore{inner: inner}
}

// Enabled delegates to the wrapped store.
func (s *RecordingStore) Enabled() bool {
	return s.inner.Enabled()
}

// Read counts the call and delegates to the wrapped store.
func (s *RecordingStore) Read(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.inner.Read(ctx)
}

// Write records the attempted content and delegates to the wrapped store.
// The content is recorded even when the wrapped store rejects it.
func (s *RecordingStore) Write(ctx context.Context, flat string) error {
	s.mu.Lock()
	s.writes = append(s.writes, flat)
	s.mu.Unlock()
	return s.inner.Write(ctx, flat)
}

// Reads returns the number of Read calls.
func (s *RecordingStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Writes returns a copy of every written flat string, in call order.
func (s *RecordingStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writes))
	copy(out, s.writes)
	return out
}

// Reset clears the recorded calls.
//
// Used for test reuse. The wrapped store is left untouched.
func (s *RecordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = 0
	s.writes = nil
}
