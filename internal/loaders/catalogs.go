package loaders

import (
	"math"
	"strings"

	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/internal/validation"
)

var (
	damColumns = []string{
		"name", "start_time", "end_time", "report",
		"vmax", "vmin", "vini", "vend", "scale",
		"non_physical_inflow", "non_physical_inflow_penalty", "val_ovf",
	}
	generatorColumns = []string{
		"name", "start_time", "end_time", "report", "connected",
		"hydro_group_name", "pmax", "pmin", "eff", "vomc_avg",
	}
	groupColumns      = []string{"name", "start_time", "end_time", "report", "hg_sp_min", "hg_sp_max"}
	nodeColumns       = []string{"name", "start_time", "end_time", "report", "formulate_bal"}
	connectionColumns = []string{"name", "start_time", "end_time", "report", "h_type", "ini", "end"}
)

// LoadDams reads the dam catalog. Names must be unique; a blank scale
// defaults to 1.0.
func LoadDams(path string) ([]models.DamRow, error) {
	const tag = "Dam"
	t, err := openTable(path, tag, damColumns)
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.DamRow, 0, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		start, err := r.timestamp("start_time")
		if err != nil {
			return nil, err
		}
		end, err := r.timestamp("end_time")
		if err != nil {
			return nil, err
		}

		d := models.DamRow{
			Name:                     r.get("name"),
			StartTime:                start,
			EndTime:                  end,
			Report:                   r.flag("report", true),
			Vmax:                     r.number("vmax", 0),
			Vmin:                     r.number("vmin", 0),
			Vini:                     r.number("vini", 0),
			Vend:                     r.number("vend", 0),
			Scale:                    r.number("scale", 1.0),
			NonPhysicalInflow:        r.flag("non_physical_inflow", false),
			NonPhysicalInflowPenalty: r.number("non_physical_inflow_penalty", 0),
			CondOverflow:             r.flag("cond_ovf", true),
			VolOverflow:              r.number("vol_ovf", 0),
			ValOverflow:              r.number("val_ovf", 0),
		}
		if err := validation.Row(tag, r.line, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
		names = append(names, d.Name)
	}

	if err := assertUnique(tag, names); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadHydroGenerators reads the hydro generation units. Names must be unique.
func LoadHydroGenerators(path string) ([]models.HydroGeneratorRow, error) {
	const tag = "HydroGenerator"
	t, err := openTable(path, tag, generatorColumns)
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.HydroGeneratorRow, 0, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		start, err := r.timestamp("start_time")
		if err != nil {
			return nil, err
		}
		end, err := r.timestamp("end_time")
		if err != nil {
			return nil, err
		}

		g := models.HydroGeneratorRow{
			Name:           r.get("name"),
			StartTime:      start,
			EndTime:        end,
			Report:         r.flag("report", true),
			Connected:      r.flag("connected", true),
			Busbar:         r.get("busbar"),
			HydroGroupName: r.get("hydro_group_name"),
			UsePumpMode:    r.flag("use_pump_mode", false),
			Pmax:           r.number("pmax", 0),
			Pmin:           r.number("pmin", 0),
			PmaxPump:       r.number("pmax_pump", 0),
			PminPump:       r.number("pmin_pump", 0),
			Efficiency:     r.number("eff", 0),
			VomcAvg:        r.number("vomc_avg", 0),
		}
		if err := validation.Row(tag, r.line, &g); err != nil {
			return nil, err
		}
		out = append(out, g)
		names = append(names, g.Name)
	}

	if err := assertUnique(tag, names); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadHydroGroups reads the hydro-group setpoint limits. A blank hg_sp_max
// means unbounded. Every group must satisfy end_time > start_time,
// hg_sp_min >= 0 and, when bounded, hg_sp_min <= hg_sp_max.
func LoadHydroGroups(path string) ([]models.HydroGroupRow, error) {
	const tag = "HydroGroup"
	t, err := openTable(path, tag, groupColumns)
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.HydroGroupRow, 0, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		start, err := r.timestamp("start_time")
		if err != nil {
			return nil, err
		}
		end, err := r.timestamp("end_time")
		if err != nil {
			return nil, err
		}

		g := models.HydroGroupRow{
			Name:        r.get("name"),
			StartTime:   start,
			EndTime:     end,
			Report:      r.flag("report", true),
			SetpointMin: r.number("hg_sp_min", 0),
			SetpointMax: r.optFloat("hg_sp_max"),
		}
		if g.SetpointMax != nil && math.IsInf(*g.SetpointMax, 1) {
			g.SetpointMax = nil
		}
		out = append(out, g)
		names = append(names, g.Name)
	}

	if err := assertUnique(tag, names); err != nil {
		return nil, err
	}
	if err := validation.HydroGroups(out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadHydroNodes reads the hydraulic nodes. A name may repeat across
// validity periods; every row must satisfy end_time > start_time.
func LoadHydroNodes(path string) ([]models.HydroNodeRow, error) {
	const tag = "HydroNode"
	t, err := openTable(path, tag, nodeColumns)
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.HydroNodeRow, 0, len(rows))
	var bad []string
	for _, r := range rows {
		start, err := r.timestamp("start_time")
		if err != nil {
			return nil, err
		}
		end, err := r.timestamp("end_time")
		if err != nil {
			return nil, err
		}

		n := models.HydroNodeRow{
			Name:         r.get("name"),
			StartTime:    start,
			EndTime:      end,
			Report:       r.flag("report", true),
			FormulateBal: r.flag("formulate_bal", false),
		}
		if !n.EndTime.After(n.StartTime) {
			bad = append(bad, n.Name)
			continue
		}
		if err := validation.Row(tag, r.line, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	if len(bad) > 0 {
		return nil, validation.NamesError(tag, "end_time", "end_time <= start_time", bad)
	}
	return out, nil
}

// LoadHydroConnections reads the hydraulic connections. Names must be unique;
// endpoints are trimmed and the type label lower-cased.
func LoadHydroConnections(path string) ([]models.HydroConnectionRow, error) {
	const tag = "HydroConnection"
	t, err := openTable(path, tag, connectionColumns)
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.HydroConnectionRow, 0, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		start, err := r.timestamp("start_time")
		if err != nil {
			return nil, err
		}
		end, err := r.timestamp("end_time")
		if err != nil {
			return nil, err
		}

		c := models.HydroConnectionRow{
			Name:        r.get("name"),
			StartTime:   start,
			EndTime:     end,
			Report:      r.flag("report", true),
			Type:        strings.ToLower(r.get("h_type")),
			Origin:      r.get("ini"),
			Destination: r.get("end"),
			MaxFlow:     r.optFloat("h_max_flow"),
			MinFlow:     r.optFloat("h_min_flow"),
			Ramp:        r.optFloat("h_ramp"),
			Delay:       r.optInt("h_delay"),
			DelayedFlow: r.optFloat("h_delayed_q"),
			FlowPenalty: r.optFloat("h_flow_penalty"),
		}
		if err := validation.Row(tag, r.line, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
		names = append(names, c.Name)
	}

	if err := assertUnique(tag, names); err != nil {
		return nil, err
	}
	return out, nil
}
