package models

import (
	"sort"
	"time"
)

// Tally counts occurrences and keeps a bounded sample of distinct names.
type Tally struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples,omitempty"`
	Limit   int      `json:"-"`
	seen    map[string]struct{}
}

// NewTally creates a tally keeping at most limit sample names.
func NewTally(limit int) *Tally {
	if limit <= 0 {
		limit = DefaultSampleSize
	}
	return &Tally{Limit: limit, seen: make(map[string]struct{})}
}

// Add counts one occurrence of name.
func (t *Tally) Add(name string) {
	t.Count++
	if t.seen == nil {
		t.seen = make(map[string]struct{})
	}
	if _, ok := t.seen[name]; ok {
		return
	}
	t.seen[name] = struct{}{}
	if len(t.Samples) < t.Limit {
		t.Samples = append(t.Samples, name)
		sort.Strings(t.Samples)
	}
}

// Distinct returns the number of distinct names seen.
func (t *Tally) Distinct() int {
	return len(t.seen)
}

// AmbiguousRoute records an inflow node mapped to several destinations of one
// class, or to destinations of both classes. Chosen is the destination that
// was kept: the last one seen, or the reservoir for a cross route.
type AmbiguousRoute struct {
	Inflow     string   `json:"inflow"`
	Class      string   `json:"class"`
	Candidates []string `json:"candidates"`
	Chosen     string   `json:"chosen"`
}

// AmbiguousClassCross marks an inflow routed to both a reservoir and a
// hydro-group.
const AmbiguousClassCross = "cross"

// GraphDiagnostics is the non-fatal side channel of graph construction.
type GraphDiagnostics struct {
	AmbiguousRoutes []AmbiguousRoute `json:"ambiguous_routes"`
	ArcKinds        map[string]int   `json:"arc_kinds"`
	EmptyEndpoints  int              `json:"empty_endpoints"`
}

// CoverageReport counts how hourly records matched the calendar.
type CoverageReport struct {
	Records       int `json:"records"`
	Accepted      int `json:"accepted"`
	OutOfWindow   int `json:"out_of_window"`
	UnmatchedHour int `json:"unmatched_hour"`
	Entries       int `json:"entries"`
}

// Merge adds the counters of o.
func (c *CoverageReport) Merge(o CoverageReport) {
	c.Records += o.Records
	c.Accepted += o.Accepted
	c.OutOfWindow += o.OutOfWindow
	c.UnmatchedHour += o.UnmatchedHour
	c.Entries += o.Entries
}

// AssemblyReport describes inflow entries that could not be routed.
type AssemblyReport struct {
	Routed           int     `json:"routed"`
	Unresolved       *Tally  `json:"unresolved"`
	UnresolvedVolume float64 `json:"unresolved_volume_hm3"`
}

// TopologySummary describes the connectivity of the routing graph.
type TopologySummary struct {
	Nodes         int      `json:"nodes"`
	Arcs          int      `json:"arcs"`
	Basins        int      `json:"basins"`
	LargestBasins []int    `json:"largest_basins"`
	Isolated      []string `json:"isolated,omitempty"`
	HasCycle      bool     `json:"has_cycle"`
	CycleExample  []string `json:"cycle_example,omitempty"`
}

// BuildReport gathers every diagnostic of one model build.
type BuildReport struct {
	BuildID            string             `json:"build_id"`
	StartedAt          time.Time          `json:"started_at"`
	Duration           time.Duration      `json:"duration_ns"`
	SourceCounts       map[string]int     `json:"source_counts"`
	Graph              GraphDiagnostics   `json:"graph"`
	InflowCoverage     CoverageReport     `json:"inflow_coverage"`
	IrrigationCoverage CoverageReport     `json:"irrigation_coverage"`
	Assembly           AssemblyReport     `json:"assembly"`
	Topology           TopologySummary    `json:"topology"`
	StageDurations     map[string]float64 `json:"stage_durations_s"`
}
