package models

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArcKind(t *testing.T) {
	tests := []struct {
		label string
		want  ArcKind
	}{
		{"spill", ArcSpill},
		{" SPILL ", ArcSpill},
		{"derrame", ArcSpill},
		{"turb", ArcTurbine},
		{"Turbine", ArcTurbine},
		{"nat", ArcNatural},
		{"natural", ArcNatural},
		{"pump", ArcPump},
		{"", ArcOther},
		{"filtration", ArcOther},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseArcKind(tt.label))
		})
	}
}

func TestNameClassifier(t *testing.T) {
	c := NewNameClassifier(DefaultPrefixes())
	c.Register(KindReservoir, "Colbun", " ")
	c.Register(KindHydroGroup, "Rapel")
	c.Register(KindBalance, "Afl_Maule", "Junction", "Colbun")

	tests := []struct {
		name string
		want NodeKind
	}{
		{"Colbun", KindReservoir},
		{" Colbun ", KindReservoir},
		{"Rapel", KindHydroGroup},
		{"Emb_Ralco", KindReservoir},
		{"emb_ralco", KindOther},
		{"HG_Pangue", KindHydroGroup},
		{"Afl_Maule", KindInflow},
		{"AFL_Biobio", KindInflow},
		{"Junction", KindBalance},
		{"Sea", KindOther},
		{"", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.name))
		})
	}

	ref := c.Ref("  HG_Pangue")
	assert.Equal(t, NodeRef{Name: "HG_Pangue", Kind: KindHydroGroup}, ref)
	assert.Equal(t, "hydro_group", KindHydroGroup.String())
}

func TestNameClassifier_RegisterInvalidatesCache(t *testing.T) {
	c := NewNameClassifier(DefaultPrefixes())
	assert.Equal(t, KindOther, c.Classify("Colbun"))

	c.Register(KindReservoir, "Colbun")
	assert.Equal(t, KindReservoir, c.Classify("Colbun"))
}

func TestRoutingMap(t *testing.T) {
	m := RoutingMap{"afl_a": "Emb_A", "afl_b": ""}

	dest, ok := m.Resolve("  AFL_A ")
	assert.True(t, ok)
	assert.Equal(t, "Emb_A", dest)

	_, ok = m.Resolve("Afl_B")
	assert.False(t, ok)

	assert.Equal(t, []string{"afl_a", "afl_b"}, m.Sources())
}

func TestReservoirCatalog_ScaleFor(t *testing.T) {
	var nilCat *ReservoirCatalog
	assert.Equal(t, 1.0, nilCat.ScaleFor("x"))

	c := NewReservoirCatalog()
	c.Scale["Emb_A"] = 1.5
	assert.Equal(t, 1.5, c.ScaleFor("Emb_A"))
	assert.Equal(t, 1.0, c.ScaleFor("Emb_B"))
}

func TestHydroGroupsLimits_IsBounded(t *testing.T) {
	l := &HydroGroupsLimits{
		SetpointMin: map[string]float64{"HG_A": 0, "HG_B": 1},
		SetpointMax: map[string]float64{"HG_A": math.Inf(1), "HG_B": 5},
	}
	assert.False(t, l.IsBounded("HG_A"))
	assert.True(t, l.IsBounded("HG_B"))
	assert.False(t, l.IsBounded("HG_C"))
}

func TestHydroGraph_Lists(t *testing.T) {
	g := &HydroGraph{
		SpillRes: []Arc{{"Emb_A", "Emb_B"}},
		TurbToHG: []Arc{{"Emb_A", "HG_A"}, {"Emb_B", "HG_B"}},
		Natural:  []Arc{{"Afl_A", "Emb_A"}},
	}

	assert.Equal(t, map[string]int{
		ListSpillRes: 1, ListTurbRes: 0, ListSpillToHG: 0, ListTurbToHG: 2, ListNatural: 1,
	}, g.ArcCounts())
	assert.Len(t, g.AllArcs(), 4)

	lists := g.HardLists()
	require.Len(t, lists, 4)
	assert.Equal(t, ListTurbToHG, lists[3].Tag)
	assert.True(t, lists[3].ToHydroGroup)
	assert.False(t, lists[0].ToHydroGroup)
}

func TestStructuralError(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	err := NewStructuralError("graph:spill_res", "unknown_origin", names, 2)

	assert.Equal(t, 4, err.Total)
	assert.Equal(t, []string{"a", "b"}, err.Offenders)
	assert.Contains(t, err.Error(), "... and 2 more")
	assert.True(t, errors.Is(err, ErrStructural))
	assert.False(t, err.IsTransient())

	// The sample is a copy.
	names[0] = "z"
	assert.Equal(t, "a", err.Offenders[0])

	assert.Nil(t, JoinStructural("graph", nil))
	assert.Same(t, err, JoinStructural("graph", []*StructuralError{err}))

	other := NewStructuralError("graph:natural", "self_loop", []string{"x->x"}, 0)
	joined := JoinStructural("graph", []*StructuralError{err, other})

	var se *StructuralError
	require.True(t, errors.As(joined, &se))
	assert.Len(t, se.Checks(), 2)
	assert.True(t, strings.HasPrefix(joined.Error(), "graph: 2 checks failed"))
}

func TestRoutingError(t *testing.T) {
	err := &RoutingError{Kind: "unresolved", Names: []string{"afl_x"}, Total: 1, Message: "inflows without destination"}
	assert.True(t, errors.Is(err, ErrRouting))
	assert.Contains(t, err.Error(), "afl_x")
}

func TestValidationError(t *testing.T) {
	assert.Equal(t, "boom", (&ValidationError{Message: "boom"}).Error())
	assert.Equal(t, `vmax: must be positive (value "-1")`,
		(&ValidationError{Field: "vmax", Value: "-1", Message: "must be positive"}).Error())
}

func TestTally(t *testing.T) {
	tally := NewTally(2)
	for _, n := range []string{"c", "a", "c", "b"} {
		tally.Add(n)
	}
	assert.Equal(t, 4, tally.Count)
	assert.Equal(t, 3, tally.Distinct())
	assert.Equal(t, []string{"a", "c"}, tally.Samples)
}

func TestBlockVolumes(t *testing.T) {
	b := make(BlockVolumes)
	b.Add(NewBlockKey("Emb_B", TimeIndex{1, 1}), 2)
	b.Add(NewBlockKey("Emb_A", TimeIndex{2, 1}), 1)
	b.Add(NewBlockKey("Emb_A", TimeIndex{1, 2}), 3)
	b.Add(NewBlockKey("Emb_A", TimeIndex{1, 2}), 0.5)

	assert.Equal(t, 3.5, b.Get("Emb_A", TimeIndex{1, 2}))
	assert.Equal(t, 0.0, b.Get("Emb_C", TimeIndex{1, 1}))
	assert.Equal(t, 6.5, b.Total())
	assert.Equal(t, []string{"Emb_A", "Emb_B"}, b.Names())

	keys := b.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, BlockKey{"Emb_A", 1, 2}, keys[0])
	assert.Equal(t, BlockKey{"Emb_A", 2, 1}, keys[1])
	assert.Equal(t, BlockKey{"Emb_B", 1, 1}, keys[2])

	entries := b.Entries("Emb_A")
	assert.Len(t, entries, 2)
	assert.Empty(t, b.Entries("Emb_Z"))
	assert.Len(t, b.Entries(" emb_a "), 2)

	clone := b.Clone()
	clone.Add(NewBlockKey("Emb_B", TimeIndex{1, 1}), 10)
	assert.Equal(t, 2.0, b.Get("Emb_B", TimeIndex{1, 1}))
}

func TestM3sToHm3PerHour(t *testing.T) {
	assert.InDelta(t, 0.0036, M3sToHm3PerHour(1), 1e-12)
	assert.InDelta(t, 3.6, M3sToHm3PerHour(1000), 1e-12)
}
