package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatkv/internal/ir"
)

func TestUnravel_ContainerDetection(t *testing.T) {
	entries := Unravel(Decode("pt=x=1&y=2;single=x=1"), ModeAll)
	require.Len(t, entries, 2)

	assert.Equal(t, ir.KindContainer, entries[0].Kind())
	children, ok := entries[0].Children()
	require.True(t, ok)
	assert.Equal(t, []ir.Entry{ir.NewScalar("x", "1"), ir.NewScalar("y", "2")}, children)

	assert.Equal(t, ir.KindScalar, entries[1].Kind(), "x=1 without '&' stays scalar")
	v, _ := entries[1].Scalar()
	assert.Equal(t, "x=1", v)
}

func TestUnravel_JSONPrecedence(t *testing.T) {
	entries := Unravel(Decode("n=5"), ModeAll)
	require.Len(t, entries, 1)

	assert.Equal(t, ir.KindJSON, entries[0].Kind())
	v, _ := entries[0].JSON()
	assert.Equal(t, ir.Int(5), v)
}

func TestUnravel_OutOfRangeNumberStaysScalar(t *testing.T) {
	entries := Unravel(Decode("big=1e400;wide=18446744073709551615"), ModeAll)
	require.Len(t, entries, 2)

	assert.Equal(t, ir.KindScalar, entries[0].Kind())
	v, _ := entries[0].Scalar()
	assert.Equal(t, "1e400", v)

	assert.Equal(t, ir.KindJSON, entries[1].Kind())
	j, _ := entries[1].JSON()
	assert.Equal(t, ir.Float(18446744073709551615), j)
}

func TestUnravel_JSONShapes(t *testing.T) {
	entries := Unravel(Decode(`a=true;b=null;c="s";d=1.5;e={"k":[1]};f=nope;g={bad`), ModeAll)
	require.Len(t, entries, 7)

	want := []ir.Kind{ir.KindJSON, ir.KindJSON, ir.KindJSON, ir.KindJSON, ir.KindJSON, ir.KindScalar, ir.KindScalar}
	for i, k := range want {
		assert.Equal(t, k, entries[i].Kind(), "entry %q", entries[i].ID)
	}

	v, _ := entries[2].JSON()
	assert.Equal(t, ir.String("s"), v)
	v, _ = entries[3].JSON()
	assert.Equal(t, ir.Float(1.5), v)
}

func TestUnravel_JSONTrailingDataStaysScalar(t *testing.T) {
	entries := Unravel(Decode("a=1 2"), ModeAll)
	assert.Equal(t, ir.KindScalar, entries[0].Kind())
}

func TestUnravel_ContainerRejectsMalformedSegments(t *testing.T) {
	cases := []string{
		"v=x=1&y",    // segment without '='
		"v=x=1&y==2", // segment with two '='
		"v=x=1&",     // empty trailing segment
		"v=&",        // no '=' at all
	}
	for _, flat := range cases {
		entries := Unravel(Decode(flat), ModeAll)
		require.Len(t, entries, 1)
		assert.Equal(t, ir.KindScalar, entries[0].Kind(), "Unravel(%q)", flat)
	}
}

func TestUnravel_ContainerKeepsEmptyValues(t *testing.T) {
	entries := Unravel(Decode("v=a=&b=2"), ModeContainerOnly)
	require.Equal(t, ir.KindContainer, entries[0].Kind())
	children, _ := entries[0].Children()
	assert.Equal(t, ir.NewScalar("a", ""), children[0])
}

func TestUnravel_Modes(t *testing.T) {
	flat := "n=5;pt=x=1&y=2;s=plain"

	tests := []struct {
		mode Mode
		want []ir.Kind
	}{
		{ModeAll, []ir.Kind{ir.KindJSON, ir.KindContainer, ir.KindScalar}},
		{ModeJSONOnly, []ir.Kind{ir.KindJSON, ir.KindScalar, ir.KindScalar}},
		{ModeContainerOnly, []ir.Kind{ir.KindScalar, ir.KindContainer, ir.KindScalar}},
		{ModeNone, []ir.Kind{ir.KindScalar, ir.KindScalar, ir.KindScalar}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			entries := Unravel(Decode(flat), tt.mode)
			require.Len(t, entries, len(tt.want))
			for i, k := range tt.want {
				assert.Equal(t, k, entries[i].Kind(), "entry %q", entries[i].ID)
			}
		})
	}
}

func TestUnravel_JSONOnlyIdempotent(t *testing.T) {
	decoded := Decode(`a=1;b={"k":"v"};c=text;d=x=1&y=2`)

	once := Unravel(decoded, ModeJSONOnly)
	twice := Unravel(once, ModeJSONOnly)
	assert.Equal(t, once, twice)
}

func TestUnravel_AllIdempotent(t *testing.T) {
	once := Unravel(Decode(`a=1;d=x=1&y=2;s=plain`), ModeAll)
	assert.Equal(t, once, Unravel(once, ModeAll))
}

func TestUnravel_PreservesOrderAndCount(t *testing.T) {
	decoded := Decode("z=1;y=a=1&b=2;x=[];w=w")
	entries := Unravel(decoded, ModeAll)

	require.Len(t, entries, len(decoded))
	for i := range decoded {
		assert.Equal(t, decoded[i].ID, entries[i].ID)
	}
}

type upperClassifier struct{}

func (upperClassifier) Name() string { return "upper" }

func (upperClassifier) Classify(e ir.Entry) (ir.Entry, Outcome) {
	s, _ := e.Scalar()
	if s != "UP" {
		return e, NotApplicable
	}
	return ir.NewJSON(e.ID, ir.Bool(true)), Matched
}

func TestUnravelWith_FirstMatchWins(t *testing.T) {
	entries := UnravelWith(Decode("a=UP;b=5"), []Classifier{upperClassifier{}, JSONClassifier{}})

	v, _ := entries[0].JSON()
	assert.Equal(t, ir.Bool(true), v)
	v, _ = entries[1].JSON()
	assert.Equal(t, ir.Int(5), v)
}

func TestClassifiers_Order(t *testing.T) {
	var names []string
	for _, c := range Classifiers(ModeAll) {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"json", "container"}, names)
	assert.Empty(t, Classifiers(ModeNone))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAll, m)

	for _, want := range ValidModes {
		got, err := ParseMode(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseMode("everything")
	assert.Error(t, err)
}
