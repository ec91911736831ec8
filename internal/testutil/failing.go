package testutil

import (
	"context"
	"errors"
)

// ErrInjected is the default error returned by FailingStore.
var ErrInjected = errors.New("injected flat store failure")

// FailingStore is an enabled FlatStore whose Read or Write always fails.
//
// Thread-safety: FailingStore is immutable after construction and safe for
// concurrent use.
type FailingStore struct {
	content   string
	failRead  bool
	failWrite bool
	err       error
}

// NewFailingReadStore returns a store whose Read always fails with err.
// A nil err selects ErrInjected.
func NewFailingReadStore(err error) *FailingStore {
	return &FailingStore{failRead: true, err: orInjected(err)}
}

// NewFailingWriteStore returns a store that reads content and whose Write
// always fails with err. A nil err selects ErrInjected.
func NewFailingWriteStore(content string, err error) *FailingStore {
	return &FailingStore{content: content, failWrite: true, err: orInjected(err)}
}

// Enabled always reports true.
func (s *FailingStore) Enabled() bool {
	return true
}

// Read returns the fixed content or the injected error.
func (s *FailingStore) Read(ctx context.Context) (string, error) {
	if s.failRead {
		return "", s.err
	}
	return s.content, nil
}

// Write returns the injected error, or nil when only reads fail.
func (s *FailingStore) Write(ctx context.Context, flat string) error {
	if s.failWrite {
		return s.err
	}
	return nil
}

func orInjected(err error) error {
	if err == nil {
		return ErrInjected
	}
	return err
}
