package models

import (
	"math"
	"sort"
	"strings"
)

// NodeKind tags a hydraulic node with its role in the routing graph.
// It is resolved once per name (see NameClassifier) instead of being
// re-derived from the name at every step.
type NodeKind int

const (
	KindOther NodeKind = iota
	KindReservoir
	KindHydroGroup
	KindInflow
	KindBalance
)

// String returns string representation of a node kind
func (k NodeKind) String() string {
	switch k {
	case KindReservoir:
		return "reservoir"
	case KindHydroGroup:
		return "hydro_group"
	case KindInflow:
		return "inflow"
	case KindBalance:
		return "balance"
	default:
		return "other"
	}
}

// NodeRef is a node name together with its resolved kind.
type NodeRef struct {
	Name string   `json:"name"`
	Kind NodeKind `json:"kind"`
}

// ArcKind is the normalized label of a hydraulic connection.
type ArcKind string

const (
	ArcSpill   ArcKind = "spill"
	ArcTurbine ArcKind = "turb"
	ArcNatural ArcKind = "nat"
	ArcPump    ArcKind = "pump"
	ArcOther   ArcKind = "other"
)

// ParseArcKind maps a raw connection type label to its canonical kind.
// Matching is case and alias insensitive; unknown labels map to ArcOther.
func ParseArcKind(label string) ArcKind {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "spill", "derrame":
		return ArcSpill
	case "turb", "turbine", "turbinado":
		return ArcTurbine
	case "nat", "natural":
		return ArcNatural
	case "pump", "pumping":
		return ArcPump
	default:
		return ArcOther
	}
}

// NormalizeNodeName trims and lower-cases a node name. Inflow node names
// are always compared in this form.
func NormalizeNodeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Arc is an ordered (origin, destination) pair of node names.
type Arc struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// IsSelfLoop reports whether the arc starts and ends at the same node.
func (a Arc) IsSelfLoop() bool {
	return a.Origin == a.Destination
}

// DelayedArc is an arc whose flow arrives Delay blocks later.
type DelayedArc struct {
	Arc
	Delay int `json:"delay"`
}

// ArcLimits holds the optional operating attributes of a connection row.
type ArcLimits struct {
	MaxFlow         *float64 `json:"max_flow,omitempty"`
	MinFlow         *float64 `json:"min_flow,omitempty"`
	Ramp            *float64 `json:"ramp,omitempty"`
	Delay           *int     `json:"delay,omitempty"`
	DelayedFraction *float64 `json:"delayed_fraction,omitempty"`
	FlowPenalty     *float64 `json:"flow_penalty,omitempty"`
}

// IsEmpty reports whether no attribute is set.
func (l ArcLimits) IsEmpty() bool {
	return l.MaxFlow == nil && l.MinFlow == nil && l.Ramp == nil &&
		l.Delay == nil && l.DelayedFraction == nil && l.FlowPenalty == nil
}

// Arc list tags used in diagnostics, metrics and errors.
const (
	ListSpillRes  = "spill_res"
	ListTurbRes   = "turb_res"
	ListSpillToHG = "spill_to_hg"
	ListTurbToHG  = "turb_to_hg"
	ListNatural   = "natural"
)

// HydroGraph is the directed water-routing graph split by arc semantics.
type HydroGraph struct {
	SpillRes  []Arc `json:"spill_res"`
	TurbRes   []Arc `json:"turb_res"`
	SpillToHG []Arc `json:"spill_to_hg"`
	TurbToHG  []Arc `json:"turb_to_hg"`
	Natural   []Arc `json:"natural"`

	// Delayed variants are not produced yet.
	SpillResDelayed  []DelayedArc `json:"spill_res_delayed,omitempty"`
	TurbResDelayed   []DelayedArc `json:"turb_res_delayed,omitempty"`
	SpillToHGDelayed []DelayedArc `json:"spill_to_hg_delayed,omitempty"`
	TurbToHGDelayed  []DelayedArc `json:"turb_to_hg_delayed,omitempty"`

	Limits map[Arc]ArcLimits `json:"-"`
}

// HardList is one of the four catalog-checked arc lists.
type HardList struct {
	Tag          string
	Arcs         []Arc
	ToHydroGroup bool
}

// HardLists returns the reservoir-origin lists in a fixed order.
func (g *HydroGraph) HardLists() []HardList {
	return []HardList{
		{Tag: ListSpillRes, Arcs: g.SpillRes},
		{Tag: ListTurbRes, Arcs: g.TurbRes},
		{Tag: ListSpillToHG, Arcs: g.SpillToHG, ToHydroGroup: true},
		{Tag: ListTurbToHG, Arcs: g.TurbToHG, ToHydroGroup: true},
	}
}

// ArcCounts returns the number of arcs per list tag.
func (g *HydroGraph) ArcCounts() map[string]int {
	return map[string]int{
		ListSpillRes:  len(g.SpillRes),
		ListTurbRes:   len(g.TurbRes),
		ListSpillToHG: len(g.SpillToHG),
		ListTurbToHG:  len(g.TurbToHG),
		ListNatural:   len(g.Natural),
	}
}

// AllArcs returns every arc of the five lists.
func (g *HydroGraph) AllArcs() []Arc {
	out := make([]Arc, 0, len(g.SpillRes)+len(g.TurbRes)+len(g.SpillToHG)+len(g.TurbToHG)+len(g.Natural))
	out = append(out, g.SpillRes...)
	out = append(out, g.TurbRes...)
	out = append(out, g.SpillToHG...)
	out = append(out, g.TurbToHG...)
	out = append(out, g.Natural...)
	return out
}

// ReservoirCatalog holds the per-reservoir parameters keyed by name.
type ReservoirCatalog struct {
	Names              []string           `json:"names"`
	Vmax               map[string]float64 `json:"vmax"`
	Vmin               map[string]float64 `json:"vmin"`
	Vini               map[string]float64 `json:"vini"`
	Vend               map[string]float64 `json:"vend"`
	Kappa              map[string]float64 `json:"kappa"`
	Scale              map[string]float64 `json:"scale"`
	OverflowValue      map[string]float64 `json:"overflow_value"`
	AllowNonPhysical   map[string]bool    `json:"allow_non_physical"`
	PenaltyNonPhysical map[string]float64 `json:"penalty_non_physical"`
}

// NewReservoirCatalog returns an empty catalog with all maps allocated.
func NewReservoirCatalog() *ReservoirCatalog {
	return &ReservoirCatalog{
		Names:              make([]string, 0),
		Vmax:               make(map[string]float64),
		Vmin:               make(map[string]float64),
		Vini:               make(map[string]float64),
		Vend:               make(map[string]float64),
		Kappa:              make(map[string]float64),
		Scale:              make(map[string]float64),
		OverflowValue:      make(map[string]float64),
		AllowNonPhysical:   make(map[string]bool),
		PenaltyNonPhysical: make(map[string]float64),
	}
}

// ScaleFor returns the inflow scale factor of a reservoir, 1.0 when unset.
func (c *ReservoirCatalog) ScaleFor(name string) float64 {
	if c == nil {
		return 1.0
	}
	if s, ok := c.Scale[name]; ok {
		return s
	}
	return 1.0
}

// GeneratorsCatalog holds hydro-generation groups aggregated from units.
type GeneratorsCatalog struct {
	Groups     []string           `json:"groups"`
	Pmax       map[string]float64 `json:"pmax"`
	Pmin       map[string]float64 `json:"pmin"`
	Kappa      map[string]float64 `json:"kappa"`
	RunOfRiver []string           `json:"run_of_river"`
}

// HydroGroupsLimits holds setpoint bounds per hydro-group. A +Inf maximum
// means the group is unbounded above.
type HydroGroupsLimits struct {
	SetpointMin map[string]float64 `json:"setpoint_min"`
	SetpointMax map[string]float64 `json:"-"`
}

// IsBounded reports whether the group has a finite maximum setpoint.
func (l *HydroGroupsLimits) IsBounded(group string) bool {
	v, ok := l.SetpointMax[group]
	return ok && !math.IsInf(v, 1)
}

// RoutingMap maps a normalized inflow-node name to one destination.
type RoutingMap map[string]string

// Resolve looks up the destination of an inflow node.
func (m RoutingMap) Resolve(inflow string) (string, bool) {
	dest, ok := m[NormalizeNodeName(inflow)]
	return dest, ok && dest != ""
}

// Sources returns the inflow names in sorted order.
func (m RoutingMap) Sources() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// InflowMeta is the per-inflow metadata carried into the bundle.
type InflowMeta struct {
	Scale       float64 `json:"scale"`
	Independent bool    `json:"independent"`
}

// HydroData is the immutable bundle handed to the optimization layer.
type HydroData struct {
	Calendar          CalendarKeys          `json:"calendar"`
	Reservoirs        *ReservoirCatalog     `json:"reservoirs"`
	Generators        *GeneratorsCatalog    `json:"generators"`
	GroupsLimits      *HydroGroupsLimits    `json:"groups_limits"`
	Graph             *HydroGraph           `json:"graph"`
	Aggregates        *BlockAggregates      `json:"-"`
	InflowToReservoir RoutingMap            `json:"inflow_to_reservoir"`
	InflowToHG        RoutingMap            `json:"inflow_to_hg"`
	BalanceNodes      []string              `json:"balance_nodes"`
	Inflows           map[string]InflowMeta `json:"inflows,omitempty"`
	Metadata          map[string]string     `json:"metadata"`
}
