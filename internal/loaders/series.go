package loaders

import (
	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/internal/validation"
)

// Series value columns in m3/s.
const (
	InflowFlowColumn     = "flow_m3s"
	IrrigationFlowColumn = "irr_m3s"
)

// LoadInflowNodes reads the inflow node metadata.
func LoadInflowNodes(path string) ([]models.InflowRow, error) {
	const tag = "Inflow"
	t, err := openTable(path, tag, []string{"name", "start_time", "end_time", "report", "inflows_qm3", "plp_indep_hydro"})
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.InflowRow, 0, len(rows))
	for _, r := range rows {
		start, err := r.timestamp("start_time")
		if err != nil {
			return nil, err
		}
		end, err := r.timestamp("end_time")
		if err != nil {
			return nil, err
		}
		q, err := r.strictFloat("inflows_qm3")
		if err != nil {
			return nil, err
		}

		in := models.InflowRow{
			Name:       r.get("name"),
			StartTime:  start,
			EndTime:    end,
			Report:     r.flag("report", true),
			InflowsQm3: q,
			IndepHydro: r.flag("plp_indep_hydro", false),
		}
		if err := validation.Row(tag, r.line, &in); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// LoadIrrigationNodes reads the irrigation point metadata.
func LoadIrrigationNodes(path string) ([]models.IrrigationRow, error) {
	const tag = "Irrigation"
	t, err := openTable(path, tag, []string{"name", "start_time", "end_time", "report", "irrigations_qm3", "voli"})
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.IrrigationRow, 0, len(rows))
	for _, r := range rows {
		start, err := r.timestamp("start_time")
		if err != nil {
			return nil, err
		}
		end, err := r.timestamp("end_time")
		if err != nil {
			return nil, err
		}
		q, err := r.strictFloat("irrigations_qm3")
		if err != nil {
			return nil, err
		}
		voli, err := r.strictFloat("voli")
		if err != nil {
			return nil, err
		}

		irr := models.IrrigationRow{
			Name:           r.get("name"),
			StartTime:      start,
			EndTime:        end,
			Report:         r.flag("report", true),
			IrrigationsQm3: q,
			Voli:           voli,
		}
		if err := validation.Row(tag, r.line, &irr); err != nil {
			return nil, err
		}
		out = append(out, irr)
	}
	return out, nil
}

// LoadSeriesLong reads a long-format hourly series (time, name, value) where
// value is a flow in m3/s, and returns one parallel-list series per name in
// order of first appearance with flows converted to hm3 per hour.
func LoadSeriesLong(path, valueColumn string) ([]models.InflowSeries, error) {
	const tag = "Series"
	t, err := openTable(path, tag, []string{"time", "name", valueColumn})
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var out []models.InflowSeries
	for _, r := range t.rows() {
		ts, err := r.timestamp("time")
		if err != nil {
			return nil, err
		}
		flow, err := r.strictFloat(valueColumn)
		if err != nil {
			return nil, err
		}
		name := r.get("name")
		if name == "" {
			return nil, r.fail("name", "", "series record without name")
		}

		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, models.InflowSeries{Name: name})
		}
		out[i].Times = append(out[i].Times, ts)
		out[i].FlowPerHour = append(out[i].FlowPerHour, models.M3sToHm3PerHour(flow))
	}
	return out, nil
}

// LoadCalendarHours reads the hour table (stage, block, time). Each row is one
// hour; an optional duration_h column overrides the default of one hour.
func LoadCalendarHours(path string) ([]models.HourRecord, error) {
	const tag = "Calendar"
	t, err := openTable(path, tag, []string{"stage", "block", "time"})
	if err != nil {
		return nil, err
	}

	rows := t.rows()
	out := make([]models.HourRecord, 0, len(rows))
	for _, r := range rows {
		stage, err := r.strictInt("stage")
		if err != nil {
			return nil, err
		}
		block, err := r.strictInt("block")
		if err != nil {
			return nil, err
		}
		ts, err := r.timestamp("time")
		if err != nil {
			return nil, err
		}

		h := models.HourRecord{
			Stage:         stage,
			Block:         block,
			Time:          ts,
			DurationHours: r.number("duration_h", 1.0),
		}
		if err := validation.Row(tag, r.line, &h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
