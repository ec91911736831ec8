package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Flat is the SQLite-backed flat string medium for one namespace.
// It implements codec.FlatStore.
//
// A namespace that was never written reads as "" and is enabled.
type Flat struct {
	db        *sql.DB
	namespace string
}

// Namespace returns the namespace this adapter reads and writes.
func (f *Flat) Namespace() string {
	return f.namespace
}

// Enabled reports whether the namespace accepts reads and writes.
// A lookup failure reports false.
func (f *Flat) Enabled() bool {
	var enabled bool
	err := f.db.QueryRow(`SELECT enabled FROM flat_blobs WHERE namespace = ?`, f.namespace).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	return err == nil && enabled
}

// Read returns the whole flat string.
func (f *Flat) Read(ctx context.Context) (string, error) {
	var content string
	err := f.db.QueryRowContext(ctx, `SELECT content FROM flat_blobs WHERE namespace = ?`, f.namespace).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read flat %q: %w", f.namespace, err)
	}
	return content, nil
}

// Write replaces the whole flat string.
// Returns ErrQuotaExceeded when the namespace has a quota and flat is larger.
func (f *Flat) Write(ctx context.Context, flat string) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write flat %q: begin tx: %w", f.namespace, err)
	}
	defer tx.Rollback() // No-op if committed

	var quota int
	err = tx.QueryRowContext(ctx, `SELECT quota FROM flat_blobs WHERE namespace = ?`, f.namespace).Scan(&quota)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("write flat %q: read quota: %w", f.namespace, err)
	}
	if quota > 0 && len(flat) > quota {
		return fmt.Errorf("write flat %q: %d bytes > %d: %w", f.namespace, len(flat), quota, ErrQuotaExceeded)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flat_blobs (namespace, content, revision)
		VALUES (?, ?, 1)
		ON CONFLICT(namespace) DO UPDATE SET
			content = excluded.content,
			revision = flat_blobs.revision + 1
	`, f.namespace, flat)
	if err != nil {
		return fmt.Errorf("write flat %q: %w", f.namespace, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write flat %q: commit: %w", f.namespace, err)
	}
	return nil
}

// SetEnabled marks the namespace usable or unusable.
func (f *Flat) SetEnabled(ctx context.Context, enabled bool) error {
	_, err := f.db.ExecContext(ctx, `
		INSERT INTO flat_blobs (namespace, enabled)
		VALUES (?, ?)
		ON CONFLICT(namespace) DO UPDATE SET enabled = excluded.enabled
	`, f.namespace, enabled)
	if err != nil {
		return fmt.Errorf("set enabled %q: %w", f.namespace, err)
	}
	return nil
}

// SetQuota sets the namespace byte quota. Zero removes the limit.
func (f *Flat) SetQuota(ctx context.Context, quota int) error {
	if quota < 0 {
		return fmt.Errorf("set quota %q: negative quota %d", f.namespace, quota)
	}
	_, err := f.db.ExecContext(ctx, `
		INSERT INTO flat_blobs (namespace, quota)
		VALUES (?, ?)
		ON CONFLICT(namespace) DO UPDATE SET quota = excluded.quota
	`, f.namespace, quota)
	if err != nil {
		return fmt.Errorf("set quota %q: %w", f.namespace, err)
	}
	return nil
}

// Usage reports the namespace size and quota.
func (f *Flat) Usage(ctx context.Context) (Usage, error) {
	u := Usage{Namespace: f.namespace, Enabled: true}
	err := f.db.QueryRowContext(ctx, `
		SELECT length(CAST(content AS BLOB)), quota, enabled, revision
		FROM flat_blobs WHERE namespace = ?
	`, f.namespace).Scan(&u.Bytes, &u.Quota, &u.Enabled, &u.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("usage %q: %w", f.namespace, err)
	}
	return u, nil
}
