package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/bands/pkg/entry"
)

func mk(id, raw string, fields map[string]any) *entry.Entry {
	e := entry.New("book", id, raw)
	e.Fields = fields
	return e
}

func TestComputeBucketsAndSorts(t *testing.T) {
	entries := []*entry.Entry{
		mk("1", "::B:: z", nil),
		mk("2", "Ungrouped", nil),
		mk("3", "::A:: a", nil),
		mk("4", "::B:: a", nil),
	}
	cfg := SortConfig{Mode: ModeField, Field: "comment", Direction: Asc}

	p := Compute(entries, []string{"A", "B"}, cfg,
		WithCollapsed(func(g string) bool { return g == "A" }),
		WithEnabled(func(g string) bool { return g != "B" }),
	)

	require.Len(t, p.Groups, 2)
	assert.Equal(t, []string{"A", "B"}, p.Names())

	a, _ := p.Group("A")
	assert.Equal(t, []string{"3"}, a.IDs())
	assert.True(t, a.Collapsed)
	assert.True(t, a.Enabled)

	b, _ := p.Group("B")
	assert.Equal(t, []string{"4", "1"}, b.IDs())
	assert.False(t, b.Enabled)
	assert.False(t, b.Collapsed)
}

func TestComputeOmitsEmptyGroups(t *testing.T) {
	entries := []*entry.Entry{mk("1", "::A:: x", nil)}
	p := Compute(entries, []string{"Ghost", "A"}, SortConfig{Mode: ModeNone})
	assert.Equal(t, []string{"A"}, p.Names())

	empty := Compute([]*entry.Entry{mk("1", "plain", nil)}, []string{"A"}, SortConfig{})
	assert.True(t, empty.Empty())
	assert.Equal(t, "", empty.Signature())
}

func TestComputeKeepsHostOrderWithoutFieldSort(t *testing.T) {
	entries := []*entry.Entry{
		mk("9", "::A:: zulu", nil),
		mk("2", "::A:: alpha", nil),
	}
	for _, mode := range []Mode{ModeNone, ModeAsIs} {
		p := Compute(entries, []string{"A"}, SortConfig{Mode: mode})
		assert.Equal(t, []string{"9", "2"}, p.Groups[0].IDs(), mode)
	}
}

func TestSortEntriesNumericWithNullsFirst(t *testing.T) {
	entries := []*entry.Entry{
		mk("a", "::G:: a", map[string]any{"order": "10"}),
		mk("b", "::G:: b", map[string]any{"order": float64(2)}),
		mk("c", "::G:: c", nil),
		mk("d", "::G:: d", map[string]any{"order": "not a number"}),
	}

	asc := SortEntries(entries, SortConfig{Mode: ModeField, Field: "order", Direction: Asc})
	assert.Equal(t, []string{"c", "d", "b", "a"}, ids(asc))

	desc := SortEntries(entries, SortConfig{Mode: ModeField, Field: "order", Direction: Desc})
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(desc))
}

func TestSortEntriesStableOnTies(t *testing.T) {
	entries := []*entry.Entry{
		mk("1", "::G:: Same", map[string]any{"depth": 1}),
		mk("2", "::G:: same", map[string]any{"depth": 1}),
		mk("3", "::G:: Apple", map[string]any{"depth": 1}),
		mk("4", "::G:: SAME", map[string]any{"depth": 1}),
	}
	got := SortEntries(entries, SortConfig{Mode: ModeField, Field: "depth", Direction: Asc})
	assert.Equal(t, []string{"3", "1", "2", "4"}, ids(got))
}

func TestSortEntriesUIDAndContent(t *testing.T) {
	entries := []*entry.Entry{
		mk("10", "::G:: x", map[string]any{"content": "long text"}),
		mk("9", "::G:: y", map[string]any{"content": "s"}),
	}
	assert.Equal(t, []string{"9", "10"}, ids(SortEntries(entries, SortConfig{Mode: ModeField, Field: "uid", Direction: Asc})))
	assert.Equal(t, []string{"10", "9"}, ids(SortEntries(entries, SortConfig{Mode: ModeField, Field: "content", Direction: Desc})))
}

func TestSortEntriesLocaleText(t *testing.T) {
	entries := []*entry.Entry{
		mk("1", "::G:: Zebra", nil),
		mk("2", "::G:: éclair", nil),
		mk("3", "::G:: apple", nil),
	}
	got := SortEntries(entries, SortConfig{Mode: ModeField, Field: "comment", Direction: Asc})
	assert.Equal(t, []string{"3", "2", "1"}, ids(got))
}

func TestSignature(t *testing.T) {
	entries := []*entry.Entry{mk("1", "::A:: x", nil), mk("2", "::B:: y", nil)}
	p1 := Compute(entries, []string{"A", "B"}, SortConfig{})
	p2 := Compute(entries, []string{"A", "B"}, SortConfig{})
	assert.Equal(t, p1.Signature(), p2.Signature())

	collapsed := Compute(entries, []string{"A", "B"}, SortConfig{}, WithCollapsed(func(string) bool { return true }))
	assert.NotEqual(t, p1.Signature(), collapsed.Signature())

	reordered := Compute(entries, []string{"B", "A"}, SortConfig{})
	assert.NotEqual(t, p1.Signature(), reordered.Signature())

	// Names containing delimiters stay unambiguous.
	tricky := Compute([]*entry.Entry{mk("1", "::a|true:: x", nil)}, []string{"a|true"}, SortConfig{})
	plain := Compute([]*entry.Entry{mk("1", "::a:: x", nil)}, []string{"a"}, SortConfig{})
	assert.NotEqual(t, tricky.Signature(), plain.Signature())
}

func TestSignatureTracksEachField(t *testing.T) {
	order := []string{"A", "B"}
	base := []*entry.Entry{mk("1", "::A:: x", nil), mk("2", "::A:: y", nil), mk("3", "::B:: z", nil)}
	sig := Compute(base, order, SortConfig{}).Signature()

	tests := map[string]Plan{
		"enabled flips": Compute(base, order, SortConfig{},
			WithEnabled(func(g string) bool { return g != "B" })),
		"collapsed flips": Compute(base, order, SortConfig{},
			WithCollapsed(func(g string) bool { return g == "A" })),
		"member order": Compute(
			[]*entry.Entry{mk("2", "::A:: y", nil), mk("1", "::A:: x", nil), mk("3", "::B:: z", nil)},
			order, SortConfig{}),
		"member ids": Compute(
			[]*entry.Entry{mk("1", "::A:: x", nil), mk("4", "::A:: y", nil), mk("3", "::B:: z", nil)},
			order, SortConfig{}),
		"member dropped": Compute(
			[]*entry.Entry{mk("1", "::A:: x", nil), mk("3", "::B:: z", nil)},
			order, SortConfig{}),
		"name": Compute(
			[]*entry.Entry{mk("1", "::C:: x", nil), mk("2", "::C:: y", nil), mk("3", "::B:: z", nil)},
			[]string{"C", "B"}, SortConfig{}),
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, sig, p.Signature())
		})
	}
}

func TestParseSort(t *testing.T) {
	cfg, err := ParseSort("order:desc")
	require.NoError(t, err)
	assert.Equal(t, SortConfig{Mode: ModeField, Field: "order", Direction: Desc}, cfg)

	cfg, err = ParseSort("comment")
	require.NoError(t, err)
	assert.Equal(t, Asc, cfg.Direction)

	cfg, err = ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, cfg.Mode)

	_, err = ParseSort("order:sideways")
	assert.Error(t, err)
}

func ids(entries []*entry.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestCompareValues(t *testing.T) {
	tests := map[string]struct {
		a, b any
		dir  Direction
		want int
	}{
		"nil first asc":      {a: nil, b: 1.0, dir: Asc, want: -1},
		"nil last desc":      {a: nil, b: 1.0, dir: Desc, want: 1},
		"both nil":           {dir: Asc, want: 0},
		"numbers":            {a: 2.0, b: 10.0, dir: Asc, want: -1},
		"numbers desc":       {a: 2.0, b: 10.0, dir: Desc, want: 1},
		"number before text": {a: 3.0, b: "abc", dir: Asc, want: -1},
		"text ignores case":  {a: "apple", b: "Apple", dir: Asc, want: 0},
		"text order":         {a: "apple", b: "Banana", dir: Asc, want: -1},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompareValues(tc.a, tc.b, tc.dir))
		})
	}
}
