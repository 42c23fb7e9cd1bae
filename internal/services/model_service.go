package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/internal/repository"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

// Aggregate names accepted by ModelService.Aggregates.
const (
	AggregateNaturalReservoir  = "natural_reservoir"
	AggregateNaturalHydroGroup = "natural_hydro_group"
	AggregateIrrigation        = "irrigation"
)

var (
	// ErrModelNotBuilt is returned by queries before the first successful build.
	ErrModelNotBuilt = errors.New("hydro model not built")
	// ErrUnknownSelector is returned for an unknown arc list or aggregate name.
	ErrUnknownSelector = errors.New("unknown selector")
)

// ArcView is one arc with its list tag and optional flow limits.
type ArcView struct {
	List        string            `json:"list"`
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	Limits      *models.ArcLimits `json:"limits,omitempty"`
}

// GroupLimitView is the setpoint range of one hydro-group. A nil Max means
// unbounded.
type GroupLimitView struct {
	Group string   `json:"group"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max"`
}

// CatalogView bundles the catalogs of the current model.
type CatalogView struct {
	Reservoirs   *models.ReservoirCatalog  `json:"reservoirs"`
	Generators   *models.GeneratorsCatalog `json:"generators"`
	GroupsLimits []GroupLimitView          `json:"groups_limits"`
	BalanceNodes []string                  `json:"balance_nodes"`
}

// RoutingView exposes both inflow routing maps.
type RoutingView struct {
	InflowToReservoir models.RoutingMap `json:"inflow_to_reservoir"`
	InflowToHG        models.RoutingMap `json:"inflow_to_hg"`
}

// ModelService owns the most recently built model and serves read queries
// over it. A failed rebuild keeps the previous model.
type ModelService struct {
	builder *HydroService
	repo    repository.SourceRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	mu     sync.RWMutex
	data   *models.HydroData
	report *models.BuildReport
}

// NewModelService creates a model service that rebuilds from repo
func NewModelService(builder *HydroService, repo repository.SourceRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ModelService {
	return &ModelService{
		builder: builder,
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Rebuild runs the pipeline and swaps in the new model on success. The
// report is returned even when the build fails.
func (s *ModelService) Rebuild(ctx context.Context) (*models.BuildReport, error) {
	log := s.logger.WithFields(logging.Fields{"component": "model_service"})

	data, report, err := s.builder.Build(ctx, s.repo)
	if err != nil {
		log.Warn(ctx, "[MODEL_REBUILD_FAILED] Keeping previous model", logging.Fields{
			"has_previous": s.Ready(),
			"error":        err.Error(),
		})
		return report, err
	}

	s.Set(data, report)
	log.Info(ctx, "[MODEL_SWAPPED] Serving new hydro model", logging.Fields{
		"build_id": report.BuildID,
	})
	return report, nil
}

// Set replaces the served model.
func (s *ModelService) Set(data *models.HydroData, report *models.BuildReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.report = report
}

// Ready reports whether a model has been built.
func (s *ModelService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data != nil
}

// HealthCheck checks the source backend.
func (s *ModelService) HealthCheck(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.HealthCheck(ctx)
}

func (s *ModelService) current() (*models.HydroData, *models.BuildReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, nil, ErrModelNotBuilt
	}
	return s.data, s.report, nil
}

// Metadata returns a copy of the model metadata.
func (s *ModelService) Metadata() (map[string]string, error) {
	data, _, err := s.current()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(data.Metadata))
	for k, v := range data.Metadata {
		out[k] = v
	}
	return out, nil
}

// Calendar returns the calendar keys of the model.
func (s *ModelService) Calendar() (models.CalendarKeys, error) {
	data, _, err := s.current()
	if err != nil {
		return models.CalendarKeys{}, err
	}
	return data.Calendar, nil
}

// Arcs lists the arcs of one list tag, or of every list when list is empty.
func (s *ModelService) Arcs(list string) ([]ArcView, error) {
	data, _, err := s.current()
	if err != nil {
		return nil, err
	}

	g := data.Graph
	lists := []struct {
		tag  string
		arcs []models.Arc
	}{
		{models.ListSpillRes, g.SpillRes},
		{models.ListTurbRes, g.TurbRes},
		{models.ListSpillToHG, g.SpillToHG},
		{models.ListTurbToHG, g.TurbToHG},
		{models.ListNatural, g.Natural},
	}

	matched := list == ""
	out := make([]ArcView, 0)
	for _, l := range lists {
		if list != "" && l.tag != list {
			continue
		}
		matched = true
		for _, a := range l.arcs {
			view := ArcView{List: l.tag, Origin: a.Origin, Destination: a.Destination}
			if lim, ok := g.Limits[a]; ok && !lim.IsEmpty() {
				lim := lim
				view.Limits = &lim
			}
			out = append(out, view)
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: arc list %q", ErrUnknownSelector, list)
	}
	return out, nil
}

// Aggregates returns one page of block entries of the named aggregate,
// optionally restricted to one node name, plus the unpaged total.
func (s *ModelService) Aggregates(kind, name string, limit, offset int) ([]models.BlockEntry, int, error) {
	data, _, err := s.current()
	if err != nil {
		return nil, 0, err
	}

	var vols models.BlockVolumes
	switch kind {
	case AggregateNaturalReservoir:
		vols = data.Aggregates.NaturalReservoir
	case AggregateNaturalHydroGroup:
		vols = data.Aggregates.NaturalHydroGroup
	case AggregateIrrigation:
		vols = data.Aggregates.Irrigation
	default:
		return nil, 0, fmt.Errorf("%w: aggregate %q", ErrUnknownSelector, kind)
	}

	entries := vols.Entries(name)
	total := len(entries)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []models.BlockEntry{}, total, nil
	}
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}
	return entries[offset:end], total, nil
}

// Catalogs returns the catalogs with group limits flattened for JSON.
func (s *ModelService) Catalogs() (*CatalogView, error) {
	data, _, err := s.current()
	if err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(data.GroupsLimits.SetpointMin))
	for g := range data.GroupsLimits.SetpointMin {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	limits := make([]GroupLimitView, 0, len(groups))
	for _, g := range groups {
		view := GroupLimitView{Group: g, Min: data.GroupsLimits.SetpointMin[g]}
		if max, ok := data.GroupsLimits.SetpointMax[g]; ok && !math.IsInf(max, 1) {
			max := max
			view.Max = &max
		}
		limits = append(limits, view)
	}

	return &CatalogView{
		Reservoirs:   data.Reservoirs,
		Generators:   data.Generators,
		GroupsLimits: limits,
		BalanceNodes: data.BalanceNodes,
	}, nil
}

// Routing returns both inflow routing maps.
func (s *ModelService) Routing() (*RoutingView, error) {
	data, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return &RoutingView{
		InflowToReservoir: data.InflowToReservoir,
		InflowToHG:        data.InflowToHG,
	}, nil
}

// Report returns the report of the served build.
func (s *ModelService) Report() (*models.BuildReport, error) {
	_, report, err := s.current()
	if err != nil {
		return nil, err
	}
	return report, nil
}
