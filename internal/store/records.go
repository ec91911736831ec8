package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/google/uuid"

	"github.com/roach88/flatkv/internal/ir"
)

// RecordRef addresses one structured record.
type RecordRef struct {
	Identity string `json:"identity"`
	Schema   string `json:"schema"`
	Index    int    `json:"index"`
}

// Records is the secondary structured record store.
//
// Records are keyed by identity and schema and addressed by a zero-based
// index within that pair. Every body is validated against the schema's
// CUE definition before it is written. Schema migration is out of scope:
// re-registering a schema replaces its source for future writes only.
type Records struct {
	db *sql.DB

	// cue.Context is not safe for concurrent use.
	mu      sync.Mutex
	cue     *cue.Context
	schemas map[string]cue.Value
}

func newRecords(db *sql.DB) *Records {
	return &Records{
		db:      db,
		cue:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
}

// NewIdentity returns a fresh time-sortable record identity (UUIDv7).
func NewIdentity() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RegisterSchema compiles a CUE schema and persists it under name.
func (r *Records) RegisterSchema(ctx context.Context, name, source string) error {
	if name == "" {
		return fmt.Errorf("register schema: name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, err := r.compile(name, source)
	if err != nil {
		return fmt.Errorf("register schema %q: %w", name, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO record_schemas (name, source)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET source = excluded.source
	`, name, source)
	if err != nil {
		return fmt.Errorf("register schema %q: %w", name, err)
	}

	r.schemas[name] = v
	return nil
}

// Create validates body and appends it as the next index for identity and
// schema. An empty identity is replaced with NewIdentity().
func (r *Records) Create(ctx context.Context, identity, schema string, body ir.Value) (RecordRef, error) {
	if identity == "" {
		identity = NewIdentity()
	}
	text, err := r.check(ctx, schema, body)
	if err != nil {
		return RecordRef{}, fmt.Errorf("create record: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return RecordRef{}, fmt.Errorf("create record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(idx) + 1, 0) FROM records
		WHERE identity = ? AND schema_name = ?
	`, identity, schema).Scan(&next)
	if err != nil {
		return RecordRef{}, fmt.Errorf("create record: next index: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (identity, schema_name, idx, body)
		VALUES (?, ?, ?, ?)
	`, identity, schema, next, text)
	if err != nil {
		return RecordRef{}, fmt.Errorf("create record: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RecordRef{}, fmt.Errorf("create record: commit: %w", err)
	}
	return RecordRef{Identity: identity, Schema: schema, Index: next}, nil
}

// Read returns the body at index. A negative index counts from the end.
func (r *Records) Read(ctx context.Context, identity, schema string, index int) (ir.Value, error) {
	idx, err := r.resolve(ctx, identity, schema, index)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var text string
	err = r.db.QueryRowContext(ctx, `
		SELECT body FROM records
		WHERE identity = ? AND schema_name = ? AND idx = ?
	`, identity, schema, idx).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read record %s/%s[%d]: %w", identity, schema, index, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	body, err := unmarshalBody(text)
	if err != nil {
		return nil, fmt.Errorf("read record %s/%s[%d]: %w", identity, schema, index, err)
	}
	return body, nil
}

// Update validates body and replaces the record at index.
// A negative index counts from the end.
func (r *Records) Update(ctx context.Context, identity, schema string, index int, body ir.Value) error {
	text, err := r.check(ctx, schema, body)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	idx, err := r.resolve(ctx, identity, schema, index)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE records SET body = ?
		WHERE identity = ? AND schema_name = ? AND idx = ?
	`, text, identity, schema, idx)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update record %s/%s[%d]: %w", identity, schema, index, ErrRecordNotFound)
	}
	return nil
}

// Count returns the number of records for identity and schema.
func (r *Records) Count(ctx context.Context, identity, schema string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records
		WHERE identity = ? AND schema_name = ?
	`, identity, schema).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// resolve maps a possibly negative index onto a stored index.
func (r *Records) resolve(ctx context.Context, identity, schema string, index int) (int, error) {
	if index >= 0 {
		return index, nil
	}
	n, err := r.Count(ctx, identity, schema)
	if err != nil {
		return 0, err
	}
	if index < -n {
		return 0, fmt.Errorf("%s/%s[%d]: %w", identity, schema, index, ErrRecordNotFound)
	}
	return n + index, nil
}

// check validates body against schema and returns its stored text.
func (r *Records) check(ctx context.Context, schema string, body ir.Value) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sch, err := r.lookup(ctx, schema)
	if err != nil {
		return "", err
	}

	v := r.cue.Encode(ir.ToAny(body))
	if err := v.Err(); err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	if err := sch.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSchemaViolation, cueerrors.Details(err, nil))
	}

	return marshalBody(body)
}

// lookup returns the compiled schema, loading it from the database on a
// cache miss. Callers hold r.mu.
func (r *Records) lookup(ctx context.Context, name string) (cue.Value, error) {
	if v, ok := r.schemas[name]; ok {
		return v, nil
	}

	var source string
	err := r.db.QueryRowContext(ctx, `SELECT source FROM record_schemas WHERE name = ?`, name).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return cue.Value{}, fmt.Errorf("%q: %w", name, ErrSchemaNotFound)
	}
	if err != nil {
		return cue.Value{}, fmt.Errorf("load schema %q: %w", name, err)
	}

	v, err := r.compile(name, source)
	if err != nil {
		return cue.Value{}, fmt.Errorf("load schema %q: %w", name, err)
	}
	r.schemas[name] = v
	return v, nil
}

// compile builds a CUE value from source. Callers hold r.mu.
func (r *Records) compile(name, source string) (cue.Value, error) {
	v := r.cue.CompileString(source, cue.Filename(name+".cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile: %s", cueerrors.Details(err, nil))
	}
	return v, nil
}
