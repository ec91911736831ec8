package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process flat string medium. It implements
// codec.FlatStore and is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	content  string
	disabled bool
	quota    int
	revision int64
}

// NewMemory creates an enabled Memory holding initial.
func NewMemory(initial string) *Memory {
	return &Memory{content: initial}
}

// Enabled implements codec.FlatStore.
func (m *Memory) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.disabled
}

// Read implements codec.FlatStore.
func (m *Memory) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content, nil
}

// Write implements codec.FlatStore.
func (m *Memory) Write(ctx context.Context, flat string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 && len(flat) > m.quota {
		return fmt.Errorf("write memory flat: %d bytes > %d: %w", len(flat), m.quota, ErrQuotaExceeded)
	}
	m.content = flat
	m.revision++
	return nil
}

// SetEnabled marks the medium usable or unusable.
func (m *Memory) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = !enabled
}

// SetQuota sets the byte quota. Zero removes the limit.
func (m *Memory) SetQuota(quota int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota = max(quota, 0)
}

// Usage implements UsageReporter.
func (m *Memory) Usage(ctx context.Context) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Usage{
		Namespace: "memory",
		Bytes:     len(m.content),
		Quota:     m.quota,
		Enabled:   !m.disabled,
		Revision:  m.revision,
	}, nil
}
