package codec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatkv/internal/ir"
	"github.com/roach88/flatkv/internal/store"
	"github.com/roach88/flatkv/internal/testutil"
)

// newTestCodec returns a codec over a recording in-memory store and the
// buffer its logger writes to.
func newTestCodec(t *testing.T, initial string) (*Codec, *testutil.RecordingStore, *store.Memory, *bytes.Buffer) {
	t.Helper()
	mem := store.NewMemory(initial)
	rec := testutil.NewRecordingStore(mem)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(rec, WithLogger(logger)), rec, mem, &logs
}

func flatOf(t *testing.T, mem *store.Memory) string {
	t.Helper()
	s, err := mem.Read(context.Background())
	require.NoError(t, err)
	return s
}

func TestAll_DecodesStore(t *testing.T) {
	c, rec, _, _ := newTestCodec(t, "a=1;b=2")

	entries, err := c.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, rec.Reads())
	assert.Empty(t, rec.Writes())
}

func TestAll_DisabledStore(t *testing.T) {
	c, rec, mem, logs := newTestCodec(t, "a=1")
	mem.SetEnabled(false)

	entries, err := c.All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Equal(t, 0, rec.Reads())
	assert.Contains(t, logs.String(), "flat store disabled")
}

func TestAll_ReadError(t *testing.T) {
	c := New(testutil.NewFailingReadStore(nil))

	_, err := c.All(context.Background())
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestUnraveled(t *testing.T) {
	c, _, _, _ := newTestCodec(t, "n=5;pt=x=1&y=2")

	entries, err := c.Unraveled(context.Background(), ModeAll)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ir.KindJSON, entries[0].Kind())
	assert.Equal(t, ir.KindContainer, entries[1].Kind())
}

func TestStore_Appends(t *testing.T) {
	c, rec, mem, _ := newTestCodec(t, "")
	ctx := context.Background()

	ok, err := c.Store(ctx, ir.R("a", "1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a=1", flatOf(t, mem))

	ok, err = c.Store(ctx, ir.R("b", "2"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a=1;b=2", flatOf(t, mem))

	// Every store call is one whole read plus one whole write.
	assert.Equal(t, 2, rec.Reads())
	assert.Equal(t, []string{"a=1", "a=1;b=2"}, rec.Writes())
}

func TestStore_BlankCurrentContentHasNoLeadingSeparator(t *testing.T) {
	c, _, mem, _ := newTestCodec(t, "   ")

	_, err := c.Store(context.Background(), ir.R("a", "1"))
	require.NoError(t, err)
	assert.Equal(t, "a=1", flatOf(t, mem))
}

func TestStore_RejectsBadShape(t *testing.T) {
	cases := []struct {
		name string
		rec  ir.Record
		code ir.ValidationCode
	}{
		{"missing id", ir.Record{"value": "x"}, ir.CodeMissingID},
		{"id not string", ir.R(1, "x"), ir.CodeIDNotString},
		{"missing value", ir.Record{"id": "a"}, ir.CodeMissingValue},
		{"value not string", ir.R("a", 5), ir.CodeValueNotString},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec, _, _ := newTestCodec(t, "")

			ok, err := c.Store(context.Background(), tc.rec)
			assert.False(t, ok)
			assert.Equal(t, tc.code, ir.CodeOf(err))
			assert.Empty(t, rec.Writes())
		})
	}
}

func TestStore_DisabledStore(t *testing.T) {
	c, rec, mem, logs := newTestCodec(t, "")
	mem.SetEnabled(false)

	ok, err := c.Store(context.Background(), ir.R("a", "1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rec.Writes())
	assert.Contains(t, logs.String(), "write skipped")
}

func TestStore_WriteErrorIsReturned(t *testing.T) {
	c := New(testutil.NewFailingWriteStore("a=1", nil))

	ok, err := c.Store(context.Background(), ir.R("b", "2"))
	assert.True(t, ok, "the write was attempted")
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestStore_QuotaExceeded(t *testing.T) {
	c, _, mem, _ := newTestCodec(t, "")
	mem.SetQuota(4)

	_, err := c.Store(context.Background(), ir.R("long", "value"))
	assert.ErrorIs(t, err, store.ErrQuotaExceeded)
	assert.Equal(t, "", flatOf(t, mem))
}

func TestStore_LossyDelimiterWarns(t *testing.T) {
	c, _, mem, logs := newTestCodec(t, "")

	ok, err := c.Store(context.Background(), ir.R("a", "x;y"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a=x;y", flatOf(t, mem))
	assert.Contains(t, logs.String(), "round-trip is lossy")
}

func TestStoreAll_RoundTrip(t *testing.T) {
	c, rec, _, _ := newTestCodec(t, "")
	ctx := context.Background()

	want := []ir.Entry{
		ir.NewScalar("a", "1"),
		ir.NewScalar("b", "hello world"),
		ir.NewScalar("a", "3"),
		ir.NewScalar("empty", ""),
	}
	recs := make([]ir.Record, len(want))
	for i, e := range want {
		recs[i] = e.Record()
	}

	result, err := c.StoreAll(ctx, recs)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, BatchResult{Total: 4, Stored: 4}, result)
	assert.Len(t, rec.Writes(), 1, "the batch is one rewrite")

	got, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreAll_BatchAtomicity(t *testing.T) {
	c, rec, mem, _ := newTestCodec(t, "keep=1")

	result, err := c.StoreAll(context.Background(), []ir.Record{
		ir.R("a", "1"),
		{"id": "b"},
		ir.R("c", "3"),
	})

	require.Error(t, err)
	var verr *ir.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ir.CodeMissingValue, verr.Code)
	assert.Equal(t, 1, verr.Index)

	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 3, result.Failed)
	assert.False(t, result.OK())
	assert.Empty(t, rec.Writes())
	assert.Equal(t, "keep=1", flatOf(t, mem))
}

func TestStoreAll_Empty(t *testing.T) {
	c, rec, _, _ := newTestCodec(t, "")

	result, err := c.StoreAll(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, rec.Writes())
}

func TestStoreAll_DisabledStore(t *testing.T) {
	c, rec, mem, _ := newTestCodec(t, "")
	mem.SetEnabled(false)

	result, err := c.StoreAll(context.Background(), []ir.Record{ir.R("a", "1")})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 1, Failed: 1}, result)
	assert.Empty(t, rec.Writes())
}

func TestStoreAsJSON(t *testing.T) {
	c, _, mem, _ := newTestCodec(t, "")
	ctx := context.Background()

	ok, err := c.StoreAsJSON(ctx, ir.R("prefs", map[string]any{"theme": "dark", "size": 3}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.StoreAsJSON(ctx, ir.R("tags", ir.Array{ir.String("a"), ir.String("<b>")}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.StoreAsJSON(ctx, ir.R("name", "ada"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, `prefs={"size":3,"theme":"dark"};tags=["a","<b>"];name="ada"`, flatOf(t, mem))

	entries, err := c.Unraveled(ctx, ModeJSONOnly)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ir.KindJSON, e.Kind(), "entry %q", e.ID)
	}
}

func TestStoreAsJSON_SerializationFailure(t *testing.T) {
	c, rec, _, _ := newTestCodec(t, "")

	ok, err := c.StoreAsJSON(context.Background(), ir.R("ch", make(chan int)))
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Empty(t, rec.Writes())

	ok, err = c.StoreAsJSON(context.Background(), ir.R("inf", ir.Float(math.Inf(1))))
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Empty(t, rec.Writes())
}

func TestStoreAsJSON_MissingValue(t *testing.T) {
	c, _, _, _ := newTestCodec(t, "")

	ok, err := c.StoreAsJSON(context.Background(), ir.Record{"id": "a"})
	assert.False(t, ok)
	assert.Equal(t, ir.CodeMissingValue, ir.CodeOf(err))
}

func TestStoreContainer(t *testing.T) {
	c, _, mem, _ := newTestCodec(t, "")
	ctx := context.Background()

	ok, err := c.StoreContainer(ctx, ir.R("pt", []ir.Record{ir.R("x", "1"), ir.R("y", "2")}))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pt=x=1&y=2", flatOf(t, mem))

	entries, err := c.Unraveled(ctx, ModeAll)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	children, ok := entries[0].Children()
	require.True(t, ok)
	assert.Equal(t, []ir.Entry{ir.NewScalar("x", "1"), ir.NewScalar("y", "2")}, children)
}

func TestStoreContainer_AcceptedSequences(t *testing.T) {
	values := map[string]any{
		"maps":    []map[string]any{{"id": "a", "value": "1"}, {"id": "b", "value": "2"}},
		"any":     []any{map[string]any{"id": "a", "value": "1"}, ir.R("b", "2")},
		"entries": []ir.Entry{ir.NewScalar("a", "1"), ir.NewScalar("b", "2")},
	}
	for name, value := range values {
		t.Run(name, func(t *testing.T) {
			c, _, mem, _ := newTestCodec(t, "")
			ok, err := c.StoreContainer(context.Background(), ir.R("c", value))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "c=a=1&b=2", flatOf(t, mem))
		})
	}
}

func TestStoreContainer_Rejects(t *testing.T) {
	cases := []struct {
		name string
		rec  ir.Record
		code ir.ValidationCode
	}{
		{"empty", ir.R("c", []ir.Record{}), ir.CodeEmptyContainer},
		{"not a sequence", ir.R("c", "x=1&y=2"), ir.CodeInvalidSubEntry},
		{"bad sub-entry", ir.R("c", []ir.Record{ir.R("x", "1"), ir.R("y", 2)}), ir.CodeInvalidSubEntry},
		{"missing id", ir.Record{"value": []ir.Record{ir.R("x", "1")}}, ir.CodeMissingID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec, _, _ := newTestCodec(t, "")
			ok, err := c.StoreContainer(context.Background(), tc.rec)
			assert.False(t, ok)
			assert.Equal(t, tc.code, ir.CodeOf(err))
			assert.Empty(t, rec.Writes())
		})
	}
}

func TestStoreContainer_CountMismatch(t *testing.T) {
	c, rec, _, logs := newTestCodec(t, "")

	ok, err := c.StoreContainer(context.Background(),
		ir.R("c", []ir.Record{ir.R("x", "1&z=3"), ir.R("y", "2")}))
	assert.False(t, ok)
	assert.Error(t, err)
	assert.False(t, ir.IsValidationError(err))
	assert.Empty(t, rec.Writes())
	assert.Contains(t, logs.String(), "count mismatch")
}

func TestStoreContainer_ShapeMismatch(t *testing.T) {
	cases := map[string][]ir.Record{
		"equals in sub-value":        {ir.R("x", "a=b"), ir.R("y", "2")},
		"equals in sub-id":           {ir.R("x=z", "1"), ir.R("y", "2")},
		"empty sub-id, equals value": {ir.R("", "a=b"), ir.R("y", "2")},
	}
	for name, subs := range cases {
		t.Run(name, func(t *testing.T) {
			c, rec, _, logs := newTestCodec(t, "")

			ok, err := c.StoreContainer(context.Background(), ir.R("p", subs))
			assert.False(t, ok)
			require.Error(t, err)
			assert.False(t, ir.IsValidationError(err))
			assert.Empty(t, rec.Writes())
			assert.Contains(t, logs.String(), "shape mismatch")
		})
	}
}

func TestStoreContainer_EmptySubValueRoundTrips(t *testing.T) {
	c, _, mem, _ := newTestCodec(t, "")
	ctx := context.Background()

	ok, err := c.StoreContainer(ctx, ir.R("p", []ir.Record{ir.R("x", ""), ir.R("y", "2")}))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p=x=&y=2", flatOf(t, mem))

	entries, err := c.Unraveled(ctx, ModeAll)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ir.KindContainer, entries[0].Kind())
}

func TestStoreAllAsJSON_SkipsUnserializable(t *testing.T) {
	c, _, mem, logs := newTestCodec(t, "")

	result, err := c.StoreAllAsJSON(context.Background(), []ir.Record{
		ir.R("a", 1),
		ir.R("bad", make(chan int)),
		ir.R("c", []any{"x", true}),
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 3, Stored: 2, Failed: 1}, result)
	assert.False(t, result.OK())
	assert.Equal(t, `a=1;c=["x",true]`, flatOf(t, mem))
	assert.Contains(t, logs.String(), "count mismatch")
}

func TestStoreAllAsJSON_ShapeFailureCounted(t *testing.T) {
	c, _, mem, _ := newTestCodec(t, "")

	result, err := c.StoreAllAsJSON(context.Background(), []ir.Record{
		{"value": 1},
		ir.R("b", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 2, Stored: 1, Failed: 1}, result)
	assert.Equal(t, "b=null", flatOf(t, mem))
}

func TestStoreAllAsJSON_AllStored(t *testing.T) {
	c, rec, _, logs := newTestCodec(t, "")

	result, err := c.StoreAllAsJSON(context.Background(), []ir.Record{ir.R("a", 1), ir.R("b", false)})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Len(t, rec.Writes(), 2, "each item is stored with its own rewrite")
	assert.NotContains(t, logs.String(), "count mismatch")
}

func TestStoreAllAsJSON_WriteErrorAborts(t *testing.T) {
	injected := errors.New("medium gone")
	c := New(testutil.NewFailingWriteStore("", injected))

	result, err := c.StoreAllAsJSON(context.Background(), []ir.Record{ir.R("a", 1), ir.R("b", 2)})
	assert.ErrorIs(t, err, injected)
	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 2, result.Failed)
}

func TestNew_DefaultLogger(t *testing.T) {
	c := New(store.NewMemory(""), WithLogger(nil))
	assert.NotNil(t, c.logger)
}
