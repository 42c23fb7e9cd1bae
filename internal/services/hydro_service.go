package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/internal/repository"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

// Build stage names used in logs and metrics.
const (
	StageLoad      = "load"
	StageCatalogs  = "catalogs"
	StageGraph     = "graph"
	StageValidate  = "validate"
	StageAggregate = "aggregate"
	StageAssemble  = "assemble"
)

// BuildOptions configures one model build.
type BuildOptions struct {
	Prefixes         models.Prefixes
	RunOfRiverPrefix string
	NaturalMode      NaturalArcMode
	ExtraNodes       []string
	Policy           RoutingPolicy
	SampleSize       int
	KappaDefault     float64
	Version          string
}

// DefaultBuildOptions returns the permissive defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Prefixes:         models.DefaultPrefixes(),
		RunOfRiverPrefix: "HG_",
		NaturalMode:      NaturalPermissive,
		SampleSize:       models.DefaultSampleSize,
		KappaDefault:     1.0,
		Version:          DefaultModelVersion,
	}
}

// HydroService runs the model build pipeline
type HydroService struct {
	opts    BuildOptions
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewHydroService creates a new build pipeline
func NewHydroService(opts BuildOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *HydroService {
	if opts.SampleSize <= 0 {
		opts.SampleSize = models.DefaultSampleSize
	}
	if opts.Version == "" {
		opts.Version = DefaultModelVersion
	}
	return &HydroService{
		opts:    opts,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Build loads every source from repo and runs the pipeline.
func (s *HydroService) Build(ctx context.Context, repo repository.SourceRepository) (*models.HydroData, *models.BuildReport, error) {
	report := s.newReport()
	ctx = logging.WithBuildID(ctx, report.BuildID)

	s.logger.Info(ctx, "[BUILD_START] Starting hydro model build", logging.Fields{
		"natural_mode":      s.opts.NaturalMode.String(),
		"strict_ambiguous":  s.opts.Policy.FailOnAmbiguous,
		"strict_unresolved": s.opts.Policy.FailOnUnresolved,
		"stage":             "INITIALIZATION",
	})

	timer := s.metrics.StageTimer(StageLoad)
	sources, err := repo.LoadSources(ctx)
	report.StageDurations[StageLoad] = timer.ObserveDuration().Seconds()
	if err != nil {
		s.fail(ctx, StageLoad, err)
		return nil, report, fmt.Errorf("failed to load sources: %w", err)
	}

	data, err := s.run(ctx, sources, report)
	return data, report, err
}

// BuildFromSources runs the pipeline on already loaded sources.
func (s *HydroService) BuildFromSources(ctx context.Context, sources *models.Sources) (*models.HydroData, *models.BuildReport, error) {
	report := s.newReport()
	ctx = logging.WithBuildID(ctx, report.BuildID)

	data, err := s.run(ctx, sources, report)
	return data, report, err
}

func (s *HydroService) newReport() *models.BuildReport {
	return &models.BuildReport{
		BuildID:        uuid.NewString(),
		StartedAt:      time.Now().UTC(),
		StageDurations: make(map[string]float64),
	}
}

func (s *HydroService) run(ctx context.Context, src *models.Sources, report *models.BuildReport) (*models.HydroData, error) {
	report.SourceCounts = src.Counts()
	for table, n := range report.SourceCounts {
		s.metrics.RecordLoaded(table, n)
	}

	s.logger.Info(ctx, "[BUILD_SOURCES] Sources loaded", logging.Fields{
		"dams":              len(src.Dams),
		"hydro_generators":  len(src.Generators),
		"hydro_groups":      len(src.Groups),
		"hydro_connections": len(src.Connections),
		"calendar_hours":    len(src.CalendarHours),
		"stage":             "SOURCES",
	})

	// Catalogs
	if err := s.checkpoint(ctx, StageCatalogs); err != nil {
		return nil, err
	}
	timer := s.metrics.StageTimer(StageCatalogs)
	res := BuildReservoirCatalog(src.Dams, s.opts.KappaDefault)
	gen := BuildGeneratorsCatalog(src.Generators, s.opts.RunOfRiverPrefix)
	limits := BuildGroupsLimits(src.Groups)
	balance := BalanceNodes(src.Nodes)
	inflows := InflowMetadata(src.InflowNodes)
	err := ValidateCatalogs(res, gen)
	report.StageDurations[StageCatalogs] = timer.ObserveDuration().Seconds()
	if err != nil {
		s.fail(ctx, StageCatalogs, err)
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	// Graph
	if err := s.checkpoint(ctx, StageGraph); err != nil {
		return nil, err
	}
	timer = s.metrics.StageTimer(StageGraph)
	classifier := models.NewNameClassifier(s.opts.Prefixes)
	classifier.Register(models.KindReservoir, res.Names...)
	classifier.Register(models.KindHydroGroup, gen.Groups...)
	classifier.Register(models.KindBalance, balance...)

	builder := NewGraphBuilder(classifier, s.opts.Policy, s.opts.SampleSize, s.logger)
	graphResult, err := builder.Build(ctx, src.Connections)
	report.StageDurations[StageGraph] = timer.ObserveDuration().Seconds()
	if graphResult != nil {
		report.Graph = graphResult.Diagnostics
		s.metrics.RecordRouting("ambiguous", len(graphResult.Diagnostics.AmbiguousRoutes))
	}
	if err != nil {
		s.fail(ctx, StageGraph, err)
		return nil, fmt.Errorf("graph construction failed: %w", err)
	}
	graph := graphResult.Graph

	// Structural validation
	if err := s.checkpoint(ctx, StageValidate); err != nil {
		return nil, err
	}
	timer = s.metrics.StageTimer(StageValidate)
	validator := GraphValidator{
		Mode:       s.opts.NaturalMode,
		ExtraNodes: s.extraNodes(balance, src.InflowNodes),
		SampleSize: s.opts.SampleSize,
	}
	err = validator.Validate(graph, res, gen)
	report.StageDurations[StageValidate] = timer.ObserveDuration().Seconds()
	if err != nil {
		s.fail(ctx, StageValidate, err)
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	report.Topology = AnalyzeTopology(graph, res, gen, s.opts.SampleSize)
	s.logger.Info(ctx, "[GRAPH_TOPOLOGY] Routing graph topology", logging.Fields{
		"nodes":          report.Topology.Nodes,
		"arcs":           report.Topology.Arcs,
		"basins":         report.Topology.Basins,
		"largest_basins": report.Topology.LargestBasins,
		"isolated":       len(report.Topology.Isolated),
		"has_cycle":      report.Topology.HasCycle,
	})
	if report.Topology.HasCycle {
		s.logger.Warn(ctx, "[GRAPH_CYCLE] Directed cycle in routing graph", logging.Fields{
			"cycle": report.Topology.CycleExample,
		})
	}

	// Aggregation
	if err := s.checkpoint(ctx, StageAggregate); err != nil {
		return nil, err
	}
	timer = s.metrics.StageTimer(StageAggregate)
	cal, err := models.NewCalendar(src.CalendarHours)
	if err != nil {
		s.fail(ctx, StageAggregate, err)
		return nil, fmt.Errorf("invalid calendar: %w", err)
	}
	inflowVolumes, inflowCov, err := AggregateInflows(cal, src.InflowSeries, AggregateOptions{Records: src.InflowRecords})
	if err != nil {
		s.fail(ctx, StageAggregate, err)
		return nil, fmt.Errorf("inflow aggregation failed: %w", err)
	}
	irrigVolumes, irrigCov, err := AggregateInflows(cal, src.IrrigSeries, AggregateOptions{Records: src.IrrigRecords})
	if err != nil {
		s.fail(ctx, StageAggregate, err)
		return nil, fmt.Errorf("irrigation aggregation failed: %w", err)
	}
	report.StageDurations[StageAggregate] = timer.ObserveDuration().Seconds()
	report.InflowCoverage = inflowCov
	report.IrrigationCoverage = irrigCov
	s.recordCoverage(ctx, "inflow", inflowCov)
	s.recordCoverage(ctx, "irrigation", irrigCov)

	// Assembly
	if err := s.checkpoint(ctx, StageAssemble); err != nil {
		return nil, err
	}
	timer = s.metrics.StageTimer(StageAssemble)
	data, assembly, err := AssembleHydroData(AssemblyInput{
		Calendar:          cal.Keys(),
		Reservoirs:        res,
		Generators:        gen,
		GroupsLimits:      limits,
		Graph:             graph,
		InflowToReservoir: graphResult.InflowToReservoir,
		InflowToHG:        graphResult.InflowToHG,
		InflowVolumes:     inflowVolumes,
		IrrigationVolumes: irrigVolumes,
		BalanceNodes:      balance,
		Inflows:           inflows,
		Metadata:          s.metadata(report.BuildID, res, gen, graph),
		Policy:            s.opts.Policy,
		SampleSize:        s.opts.SampleSize,
	})
	report.StageDurations[StageAssemble] = timer.ObserveDuration().Seconds()
	report.Assembly = assembly
	if assembly.Unresolved != nil && assembly.Unresolved.Count > 0 {
		s.metrics.RecordDropped("unresolved", assembly.Unresolved.Count)
		s.metrics.RecordRouting("unresolved", assembly.Unresolved.Distinct())
		s.logger.Warn(ctx, "[ASSEMBLY_UNRESOLVED] Inflow nodes without destination dropped", logging.Fields{
			"entries":    assembly.Unresolved.Count,
			"nodes":      assembly.Unresolved.Distinct(),
			"sample":     assembly.Unresolved.Samples,
			"volume_hm3": assembly.UnresolvedVolume,
		})
	}
	if err != nil {
		s.fail(ctx, StageAssemble, err)
		return nil, fmt.Errorf("assembly failed: %w", err)
	}

	report.Duration = time.Since(report.StartedAt)
	s.metrics.BuildDuration.Observe(report.Duration.Seconds())
	s.metrics.RecordBuild("success")
	s.metrics.SetGraphArcs(graph.ArcCounts())
	s.metrics.SetAggregateEntries("natural_reservoir", len(data.Aggregates.NaturalReservoir))
	s.metrics.SetAggregateEntries("natural_hydro_group", len(data.Aggregates.NaturalHydroGroup))
	s.metrics.SetAggregateEntries("irrigation", len(data.Aggregates.Irrigation))

	s.logger.Info(ctx, "[BUILD_COMPLETE] Hydro model build completed", logging.Fields{
		"reservoirs":          len(res.Names),
		"hydro_groups":        len(gen.Groups),
		"arcs":                len(graph.AllArcs()),
		"entries_reservoir":   len(data.Aggregates.NaturalReservoir),
		"entries_hydro_group": len(data.Aggregates.NaturalHydroGroup),
		"entries_irrigation":  len(data.Aggregates.Irrigation),
		"duration_seconds":    report.Duration.Seconds(),
		"stage":               "COMPLETE",
	})

	return data, nil
}

// extraNodes lists the names accepted as natural-arc endpoints in strict
// mode besides reservoirs and hydro-groups: configured extras, balance nodes
// and the inflow nodes of the catalog.
func (s *HydroService) extraNodes(balance []string, inflowRows []models.InflowRow) []string {
	out := append([]string(nil), s.opts.ExtraNodes...)
	out = append(out, balance...)
	for _, r := range inflowRows {
		out = append(out, r.Name)
	}
	return out
}

func (s *HydroService) metadata(buildID string, res *models.ReservoirCatalog, gen *models.GeneratorsCatalog, graph *models.HydroGraph) map[string]string {
	return map[string]string{
		"version":      s.opts.Version,
		"build_id":     buildID,
		"reservoirs":   strconv.Itoa(len(res.Names)),
		"hydro_groups": strconv.Itoa(len(gen.Groups)),
		"arcs":         strconv.Itoa(len(graph.AllArcs())),
		"natural_mode": s.opts.NaturalMode.String(),
	}
}

func (s *HydroService) recordCoverage(ctx context.Context, series string, cov models.CoverageReport) {
	s.metrics.RecordDropped("out_of_window", cov.OutOfWindow)
	s.metrics.RecordDropped("unmatched_hour", cov.UnmatchedHour)

	fields := logging.Fields{
		"series":         series,
		"records":        cov.Records,
		"accepted":       cov.Accepted,
		"out_of_window":  cov.OutOfWindow,
		"unmatched_hour": cov.UnmatchedHour,
		"entries":        cov.Entries,
	}
	if cov.UnmatchedHour > 0 {
		s.logger.Warn(ctx, "[AGGREGATE_UNMATCHED] Series hours not found in calendar", fields)
		return
	}
	s.logger.Info(ctx, "[AGGREGATE_COMPLETE] Series aggregated to blocks", fields)
}

// checkpoint reports a cancelled context before stage starts.
func (s *HydroService) checkpoint(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		s.fail(ctx, stage, err)
		return err
	}
	return nil
}

func (s *HydroService) fail(ctx context.Context, stage string, err error) {
	s.metrics.RecordBuild("failure")
	s.logger.Error(ctx, "[BUILD_FAILED] Hydro model build failed", logging.Fields{
		"stage": stage,
	}, err)
}
