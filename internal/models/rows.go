package models

import (
	"time"
)

// DamRow is one reservoir record of the dam catalog.
type DamRow struct {
	Name                     string    `json:"name" db:"name" validate:"required"`
	StartTime                time.Time `json:"start_time" db:"start_time" validate:"required"`
	EndTime                  time.Time `json:"end_time" db:"end_time" validate:"required"`
	Report                   bool      `json:"report" db:"report"`
	Vmax                     float64   `json:"vmax" db:"vmax"`
	Vmin                     float64   `json:"vmin" db:"vmin"`
	Vini                     float64   `json:"vini" db:"vini"`
	Vend                     float64   `json:"vend" db:"vend"`
	Scale                    float64   `json:"scale" db:"scale"`
	NonPhysicalInflow        bool      `json:"non_physical_inflow" db:"non_physical_inflow"`
	NonPhysicalInflowPenalty float64   `json:"non_physical_inflow_penalty" db:"non_physical_inflow_penalty"`
	CondOverflow             bool      `json:"cond_ovf" db:"cond_ovf"`
	VolOverflow              float64   `json:"vol_ovf" db:"vol_ovf"`
	ValOverflow              float64   `json:"val_ovf" db:"val_ovf"`
}

// HydroNodeRow is one hydraulic node record. A name may appear once per
// validity period.
type HydroNodeRow struct {
	Name         string    `json:"name" db:"name" validate:"required"`
	StartTime    time.Time `json:"start_time" db:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" db:"end_time" validate:"required,gtfield=StartTime"`
	Report       bool      `json:"report" db:"report"`
	FormulateBal bool      `json:"formulate_bal" db:"formulate_bal"`
}

// HydroConnectionRow is one hydraulic connection record.
type HydroConnectionRow struct {
	Name         string    `json:"name" db:"name" validate:"required"`
	StartTime    time.Time `json:"start_time" db:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" db:"end_time" validate:"required"`
	Report       bool      `json:"report" db:"report"`
	Type         string    `json:"h_type" db:"h_type"`
	Origin       string    `json:"ini" db:"ini"`
	Destination  string    `json:"end" db:"dest"`
	MaxFlow      *float64  `json:"h_max_flow,omitempty" db:"h_max_flow"`
	MinFlow      *float64  `json:"h_min_flow,omitempty" db:"h_min_flow"`
	Ramp         *float64  `json:"h_ramp,omitempty" db:"h_ramp"`
	Delay        *int      `json:"h_delay,omitempty" db:"h_delay"`
	DelayedFlow  *float64  `json:"h_delayed_q,omitempty" db:"h_delayed_q"`
	FlowPenalty  *float64  `json:"h_flow_penalty,omitempty" db:"h_flow_penalty"`
}

// Limits returns the optional attributes of the row.
func (r HydroConnectionRow) Limits() ArcLimits {
	return ArcLimits{
		MaxFlow:         r.MaxFlow,
		MinFlow:         r.MinFlow,
		Ramp:            r.Ramp,
		Delay:           r.Delay,
		DelayedFraction: r.DelayedFlow,
		FlowPenalty:     r.FlowPenalty,
	}
}

// HydroGeneratorRow is one hydro generation unit. An empty HydroGroupName
// means the unit belongs to no group.
type HydroGeneratorRow struct {
	Name           string    `json:"name" db:"name" validate:"required"`
	StartTime      time.Time `json:"start_time" db:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" db:"end_time" validate:"required"`
	Report         bool      `json:"report" db:"report"`
	Connected      bool      `json:"connected" db:"connected"`
	Busbar         string    `json:"busbar,omitempty" db:"busbar"`
	HydroGroupName string    `json:"hydro_group_name,omitempty" db:"hydro_group_name"`
	UsePumpMode    bool      `json:"use_pump_mode" db:"use_pump_mode"`
	Pmax           float64   `json:"pmax" db:"pmax" validate:"gte=0"`
	Pmin           float64   `json:"pmin" db:"pmin" validate:"gte=0"`
	PmaxPump       float64   `json:"pmax_pump" db:"pmax_pump"`
	PminPump       float64   `json:"pmin_pump" db:"pmin_pump"`
	Efficiency     float64   `json:"eff" db:"eff"`
	VomcAvg        float64   `json:"vomc_avg" db:"vomc_avg"`
}

// HydroGroupRow carries the setpoint bounds of a hydro-group. A nil
// SetpointMax means unbounded.
type HydroGroupRow struct {
	Name        string    `json:"name" db:"name" validate:"required"`
	StartTime   time.Time `json:"start_time" db:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" db:"end_time" validate:"required,gtfield=StartTime"`
	Report      bool      `json:"report" db:"report"`
	SetpointMin float64   `json:"hg_sp_min" db:"hg_sp_min" validate:"gte=0"`
	SetpointMax *float64  `json:"hg_sp_max,omitempty" db:"hg_sp_max"`
}

// InflowRow is the metadata of one inflow node.
type InflowRow struct {
	Name          string    `json:"name" db:"name" validate:"required"`
	StartTime     time.Time `json:"start_time" db:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" db:"end_time" validate:"required"`
	Report        bool      `json:"report" db:"report"`
	InflowsQm3    float64   `json:"inflows_qm3" db:"inflows_qm3"`
	IndepHydro    bool      `json:"plp_indep_hydro" db:"plp_indep_hydro"`
}

// IrrigationRow is the metadata of one irrigation withdrawal point.
type IrrigationRow struct {
	Name           string    `json:"name" db:"name" validate:"required"`
	StartTime      time.Time `json:"start_time" db:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" db:"end_time" validate:"required"`
	Report         bool      `json:"report" db:"report"`
	IrrigationsQm3 float64   `json:"irrigations_qm3" db:"irrigations_qm3"`
	Voli           float64   `json:"voli" db:"voli"`
}

// InflowSeries is an hourly series in parallel-list form. FlowPerHour is in
// hm3 per hour.
type InflowSeries struct {
	Name        string      `json:"name"`
	Times       []time.Time `json:"times"`
	FlowPerHour []float64   `json:"flow_hm3_per_hour"`
}

// SeriesRecord is one (name, hour, value) sample in flat form.
type SeriesRecord struct {
	Name  string    `json:"name" db:"name" validate:"required"`
	Time  time.Time `json:"time" db:"time" validate:"required"`
	Value float64   `json:"value" db:"value"`
}

// M3sToHm3PerHour converts a flow in m3/s to hm3 per hour.
func M3sToHm3PerHour(flow float64) float64 {
	return flow * 3600.0 / 1e6
}

// Sources bundles every raw input of one model build.
type Sources struct {
	Dams          []DamRow
	Generators    []HydroGeneratorRow
	Groups        []HydroGroupRow
	Nodes         []HydroNodeRow
	Connections   []HydroConnectionRow
	InflowNodes   []InflowRow
	Irrigation    []IrrigationRow
	InflowSeries  []InflowSeries
	InflowRecords []SeriesRecord
	IrrigSeries   []InflowSeries
	IrrigRecords  []SeriesRecord
	CalendarHours []HourRecord
}

// Counts returns the number of loaded rows per source table.
func (s *Sources) Counts() map[string]int {
	return map[string]int{
		"dams":               len(s.Dams),
		"hydro_generators":   len(s.Generators),
		"hydro_groups":       len(s.Groups),
		"hydro_nodes":        len(s.Nodes),
		"hydro_connections":  len(s.Connections),
		"inflow_nodes":       len(s.InflowNodes),
		"irrigation_nodes":   len(s.Irrigation),
		"inflow_records":     countSamples(s.InflowSeries) + len(s.InflowRecords),
		"irrigation_records": countSamples(s.IrrigSeries) + len(s.IrrigRecords),
		"calendar_hours":     len(s.CalendarHours),
	}
}

func countSamples(series []InflowSeries) int {
	n := 0
	for _, s := range series {
		n += len(s.Times)
	}
	return n
}
