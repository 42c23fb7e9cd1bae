package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

var (
	validFrom = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	validTo   = time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
)

func at(h int) time.Time {
	return validFrom.Add(time.Duration(h) * time.Hour)
}

func fptr(v float64) *float64 { return &v }

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollectorWith("test", prometheus.NewRegistry())
}

func newTestService(opts BuildOptions) *HydroService {
	return NewHydroService(opts, logging.NewNopLogger(), newTestMetrics())
}

// stubRepository serves fixed sources.
type stubRepository struct {
	src       *models.Sources
	err       error
	healthErr error
}

func (r *stubRepository) LoadSources(ctx context.Context) (*models.Sources, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.src, nil
}

func (r *stubRepository) HealthCheck(ctx context.Context) error {
	return r.healthErr
}

func conn(kind, origin, dest string) models.HydroConnectionRow {
	return models.HydroConnectionRow{
		Name:        origin + "->" + dest,
		StartTime:   validFrom,
		EndTime:     validTo,
		Type:        kind,
		Origin:      origin,
		Destination: dest,
	}
}

// sampleSources is a small valid system: one inflow feeding Emb_A, which
// turbines into HG_A and spills into Emb_B. Emb_B drains to a balance node.
func sampleSources() *models.Sources {
	return &models.Sources{
		Dams: []models.DamRow{
			{Name: "Emb_A", StartTime: validFrom, EndTime: validTo, Vmax: 100, Scale: 2},
			{Name: "Emb_B", StartTime: validFrom, EndTime: validTo, Vmax: 50, Scale: 1},
		},
		Generators: []models.HydroGeneratorRow{
			{Name: "U1", StartTime: validFrom, EndTime: validTo, HydroGroupName: "HG_A", Pmax: 10, Pmin: 1, Efficiency: 0.8},
			{Name: "U2", StartTime: validFrom, EndTime: validTo, HydroGroupName: "HG_A", Pmax: 5, Efficiency: 0.6},
		},
		Groups: []models.HydroGroupRow{
			{Name: "HG_A", StartTime: validFrom, EndTime: validTo, SetpointMin: 0},
		},
		Nodes: []models.HydroNodeRow{
			{Name: "J1", StartTime: validFrom, EndTime: validTo, FormulateBal: true},
		},
		Connections: []models.HydroConnectionRow{
			conn("turb", "Emb_A", "HG_A"),
			conn("spill", "Emb_A", "Emb_B"),
			conn("nat", "Afl_X", "Emb_A"),
			conn("nat", "Emb_B", "J1"),
		},
		InflowNodes: []models.InflowRow{
			{Name: "Afl_X", StartTime: validFrom, EndTime: validTo, InflowsQm3: 1},
		},
		InflowSeries: []models.InflowSeries{
			{Name: "Afl_X", Times: []time.Time{at(0), at(1)}, FlowPerHour: []float64{1, 2}},
		},
		CalendarHours: []models.HourRecord{
			{Stage: 1, Block: 1, Time: at(0)},
			{Stage: 1, Block: 1, Time: at(1)},
		},
	}
}
