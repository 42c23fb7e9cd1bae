package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// NaturalArcMode selects how natural arcs are checked against the catalogs.
type NaturalArcMode int

const (
	// NaturalPermissive rejects only empty endpoints and self-loops.
	NaturalPermissive NaturalArcMode = iota
	// NaturalStrict requires both endpoints to be a reservoir, a hydro-group
	// or one of the extra nodes.
	NaturalStrict
)

// String returns string representation of a natural arc mode
func (m NaturalArcMode) String() string {
	if m == NaturalStrict {
		return "strict"
	}
	return "permissive"
}

// ParseNaturalArcMode converts a configuration value into a mode.
func ParseNaturalArcMode(s string) (NaturalArcMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return NaturalPermissive, nil
	case "strict":
		return NaturalStrict, nil
	default:
		return NaturalPermissive, fmt.Errorf("unknown natural arc mode %q", s)
	}
}

// ValidateCatalogs checks that reservoir names and hydro-group names are each
// unique, reporting every duplicate.
func ValidateCatalogs(res *models.ReservoirCatalog, gen *models.GeneratorsCatalog) error {
	var errs []*models.StructuralError
	if dups := duplicates(res.Names); len(dups) > 0 {
		errs = append(errs, models.NewStructuralError("ReservoirCatalog", "duplicate_names", dups, models.DefaultSampleSize))
	}
	if dups := duplicates(gen.Groups); len(dups) > 0 {
		errs = append(errs, models.NewStructuralError("GeneratorsCatalog", "duplicate_names", dups, models.DefaultSampleSize))
	}
	return models.JoinStructural("catalogs", errs)
}

func duplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	for _, n := range names {
		seen[n]++
	}
	out := make([]string, 0)
	for n, c := range seen {
		if c > 1 {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// GraphValidator checks the routing graph against the catalogs.
type GraphValidator struct {
	Mode       NaturalArcMode
	ExtraNodes []string
	SampleSize int
}

// Validate checks every arc list and returns one error collecting all
// violations. Reservoir lists need reservoir endpoints; hydro-group lists
// need a reservoir origin and a hydro-group destination. Self-loops are
// rejected in every list.
func (v GraphValidator) Validate(graph *models.HydroGraph, res *models.ReservoirCatalog, gen *models.GeneratorsCatalog) error {
	sample := v.SampleSize
	if sample <= 0 {
		sample = models.DefaultSampleSize
	}

	reservoirs := toSet(res.Names)
	groups := toSet(gen.Groups)

	var errs []*models.StructuralError
	for _, list := range graph.HardLists() {
		right := reservoirs
		if list.ToHydroGroup {
			right = groups
		}
		errs = append(errs, checkArcs(list.Tag, list.Arcs, reservoirs, right, sample)...)
	}

	errs = append(errs, v.checkNatural(graph.Natural, reservoirs, groups, sample)...)

	return models.JoinStructural("graph", errs)
}

func (v GraphValidator) checkNatural(arcs []models.Arc, reservoirs, groups map[string]struct{}, sample int) []*models.StructuralError {
	component := "graph:" + models.ListNatural
	var errs []*models.StructuralError

	var empty []string
	for _, a := range arcs {
		if a.Origin == "" || a.Destination == "" {
			empty = append(empty, arcLabel(a))
		}
	}
	if len(empty) > 0 {
		errs = append(errs, models.NewStructuralError(component, "empty_endpoint", empty, sample))
	}

	if v.Mode == NaturalStrict {
		known := make(map[string]struct{}, len(reservoirs)+len(groups)+len(v.ExtraNodes))
		for n := range reservoirs {
			known[n] = struct{}{}
		}
		for n := range groups {
			known[n] = struct{}{}
		}
		for _, n := range v.ExtraNodes {
			known[n] = struct{}{}
		}
		nonEmpty := make([]models.Arc, 0, len(arcs))
		for _, a := range arcs {
			if a.Origin != "" && a.Destination != "" {
				nonEmpty = append(nonEmpty, a)
			}
		}
		errs = append(errs, checkArcs(models.ListNatural, nonEmpty, known, known, sample)...)
		return errs
	}

	if loops := selfLoops(arcs); len(loops) > 0 {
		errs = append(errs, models.NewStructuralError(component, "self_loop", loops, sample))
	}
	return errs
}

func checkArcs(tag string, arcs []models.Arc, left, right map[string]struct{}, sample int) []*models.StructuralError {
	component := "graph:" + tag
	var errs []*models.StructuralError

	missingLeft := make(map[string]struct{})
	missingRight := make(map[string]struct{})
	for _, a := range arcs {
		if _, ok := left[a.Origin]; !ok {
			missingLeft[a.Origin] = struct{}{}
		}
		if _, ok := right[a.Destination]; !ok {
			missingRight[a.Destination] = struct{}{}
		}
	}
	if len(missingLeft) > 0 {
		errs = append(errs, models.NewStructuralError(component, "unknown_origin", sortedKeys(missingLeft), sample))
	}
	if len(missingRight) > 0 {
		errs = append(errs, models.NewStructuralError(component, "unknown_destination", sortedKeys(missingRight), sample))
	}
	if loops := selfLoops(arcs); len(loops) > 0 {
		errs = append(errs, models.NewStructuralError(component, "self_loop", loops, sample))
	}
	return errs
}

func selfLoops(arcs []models.Arc) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, a := range arcs {
		if !a.IsSelfLoop() || a.Origin == "" {
			continue
		}
		label := arcLabel(a)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func arcLabel(a models.Arc) string {
	return a.Origin + "->" + a.Destination
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
