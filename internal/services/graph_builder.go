package services

import (
	"context"
	"sort"
	"strings"

	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/pkg/logging"
)

// RoutingPolicy selects strict handling of routing anomalies. The zero value
// keeps the permissive behavior: last-seen wins and unresolved inflows are
// dropped.
type RoutingPolicy struct {
	FailOnAmbiguous  bool
	FailOnUnresolved bool
}

// GraphResult is the output of graph construction.
type GraphResult struct {
	Graph             *models.HydroGraph
	InflowToReservoir models.RoutingMap
	InflowToHG        models.RoutingMap
	Diagnostics       models.GraphDiagnostics
}

// GraphBuilder turns hydraulic connection rows into the routing graph.
type GraphBuilder struct {
	classifier *models.NameClassifier
	policy     RoutingPolicy
	sampleSize int
	logger     *logging.StructuredLogger
}

// NewGraphBuilder creates a graph builder. The classifier decides the kind of
// every endpoint.
func NewGraphBuilder(classifier *models.NameClassifier, policy RoutingPolicy, sampleSize int, logger *logging.StructuredLogger) *GraphBuilder {
	if sampleSize <= 0 {
		sampleSize = models.DefaultSampleSize
	}
	return &GraphBuilder{
		classifier: classifier,
		policy:     policy,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

// Build classifies every connection into one of the five arc lists and
// derives the inflow routing maps.
//
// spill and turb arcs go to the reservoir lists when the destination is a
// reservoir and to the hydro-group lists otherwise; nat, pump and unknown
// types are natural. An inflow origin pointing to a reservoir or hydro-group
// registers a route; when the same inflow points to several destinations of
// one class the last one seen is kept and reported. An inflow routed to both
// a reservoir and a hydro-group keeps only the reservoir route.
func (b *GraphBuilder) Build(ctx context.Context, conns []models.HydroConnectionRow) (*GraphResult, error) {
	graph := &models.HydroGraph{
		SpillRes:  make([]models.Arc, 0),
		TurbRes:   make([]models.Arc, 0),
		SpillToHG: make([]models.Arc, 0),
		TurbToHG:  make([]models.Arc, 0),
		Natural:   make([]models.Arc, 0),
		Limits:    make(map[models.Arc]models.ArcLimits),
	}
	result := &GraphResult{
		Graph:             graph,
		InflowToReservoir: make(models.RoutingMap),
		InflowToHG:        make(models.RoutingMap),
		Diagnostics: models.GraphDiagnostics{
			AmbiguousRoutes: make([]models.AmbiguousRoute, 0),
			ArcKinds:        make(map[string]int),
		},
	}

	resTargets := make(map[string]map[string]struct{})
	hgTargets := make(map[string]map[string]struct{})

	for _, c := range conns {
		kind := models.ParseArcKind(c.Type)
		origin := b.classifier.Ref(c.Origin)
		dest := b.classifier.Ref(c.Destination)
		arc := models.Arc{Origin: origin.Name, Destination: dest.Name}

		result.Diagnostics.ArcKinds[string(kind)]++
		if arc.Origin == "" || arc.Destination == "" {
			result.Diagnostics.EmptyEndpoints++
		}

		if origin.Kind == models.KindInflow {
			key := models.NormalizeNodeName(origin.Name)
			switch dest.Kind {
			case models.KindReservoir:
				addTarget(resTargets, key, dest.Name)
				result.InflowToReservoir[key] = dest.Name
			case models.KindHydroGroup:
				addTarget(hgTargets, key, dest.Name)
				result.InflowToHG[key] = dest.Name
			}
		}

		switch kind {
		case models.ArcSpill:
			if dest.Kind == models.KindReservoir {
				graph.SpillRes = append(graph.SpillRes, arc)
			} else {
				graph.SpillToHG = append(graph.SpillToHG, arc)
			}
		case models.ArcTurbine:
			if dest.Kind == models.KindReservoir {
				graph.TurbRes = append(graph.TurbRes, arc)
			} else {
				graph.TurbToHG = append(graph.TurbToHG, arc)
			}
		default:
			// nat, pump and other are routed as natural flow
			graph.Natural = append(graph.Natural, arc)
		}

		if limits := c.Limits(); !limits.IsEmpty() {
			graph.Limits[arc] = limits
		}
	}

	result.Diagnostics.AmbiguousRoutes = append(
		ambiguousRoutes(resTargets, result.InflowToReservoir, models.KindReservoir),
		ambiguousRoutes(hgTargets, result.InflowToHG, models.KindHydroGroup)...,
	)
	result.Diagnostics.AmbiguousRoutes = append(result.Diagnostics.AmbiguousRoutes,
		crossRoutes(result.InflowToReservoir, result.InflowToHG)...)

	for _, a := range result.Diagnostics.AmbiguousRoutes {
		b.logger.Warn(ctx, "[GRAPH_AMBIGUOUS_ROUTE] Inflow maps to several destinations", logging.Fields{
			"inflow":     a.Inflow,
			"class":      a.Class,
			"candidates": strings.Join(a.Candidates, ","),
			"chosen":     a.Chosen,
		})
	}

	b.logger.Info(ctx, "[GRAPH_BUILT] Routing graph built", logging.Fields{
		"connections":         len(conns),
		"spill_res":           len(graph.SpillRes),
		"turb_res":            len(graph.TurbRes),
		"spill_to_hg":         len(graph.SpillToHG),
		"turb_to_hg":          len(graph.TurbToHG),
		"natural":             len(graph.Natural),
		"inflow_to_reservoir": len(result.InflowToReservoir),
		"inflow_to_hg":        len(result.InflowToHG),
	})

	if b.policy.FailOnAmbiguous && len(result.Diagnostics.AmbiguousRoutes) > 0 {
		seen := make(map[string]struct{}, len(result.Diagnostics.AmbiguousRoutes))
		for _, a := range result.Diagnostics.AmbiguousRoutes {
			seen[a.Inflow] = struct{}{}
		}
		names := sortedKeys(seen)
		total := len(names)
		if len(names) > b.sampleSize {
			names = names[:b.sampleSize]
		}
		return result, &models.RoutingError{
			Kind:    "ambiguous",
			Names:   names,
			Total:   total,
			Message: "inflow nodes map to several destinations",
		}
	}

	return result, nil
}

func addTarget(targets map[string]map[string]struct{}, inflow, dest string) {
	set, ok := targets[inflow]
	if !ok {
		set = make(map[string]struct{})
		targets[inflow] = set
	}
	set[dest] = struct{}{}
}

func ambiguousRoutes(targets map[string]map[string]struct{}, chosen models.RoutingMap, class models.NodeKind) []models.AmbiguousRoute {
	out := make([]models.AmbiguousRoute, 0)
	for inflow, set := range targets {
		if len(set) < 2 {
			continue
		}
		candidates := make([]string, 0, len(set))
		for d := range set {
			candidates = append(candidates, d)
		}
		sort.Strings(candidates)
		out = append(out, models.AmbiguousRoute{
			Inflow:     inflow,
			Class:      class.String(),
			Candidates: candidates,
			Chosen:     chosen[inflow],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Inflow < out[j].Inflow })
	return out
}

// crossRoutes removes from toHG every inflow that also routes to a reservoir
// and reports it.
func crossRoutes(toRes, toHG models.RoutingMap) []models.AmbiguousRoute {
	out := make([]models.AmbiguousRoute, 0)
	for inflow, group := range toHG {
		reservoir, ok := toRes[inflow]
		if !ok {
			continue
		}
		candidates := []string{reservoir, group}
		sort.Strings(candidates)
		out = append(out, models.AmbiguousRoute{
			Inflow:     inflow,
			Class:      models.AmbiguousClassCross,
			Candidates: candidates,
			Chosen:     reservoir,
		})
	}
	for _, a := range out {
		delete(toHG, a.Inflow)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Inflow < out[j].Inflow })
	return out
}
