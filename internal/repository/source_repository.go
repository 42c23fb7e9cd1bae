package repository

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/internal/validation"
	"github.com/Pinzun/simula-ameba/pkg/database"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

// SourceRepository provides the raw inputs of a model build
type SourceRepository interface {
	LoadSources(ctx context.Context) (*models.Sources, error)
	HealthCheck(ctx context.Context) error
}

// SourceImporter writes raw inputs into the source database
type SourceImporter interface {
	ImportSources(ctx context.Context, src *models.Sources) error
}

const (
	selectDams = `
		SELECT name, start_time, end_time, report, vmax, vmin, vini, vend, scale,
		       non_physical_inflow, non_physical_inflow_penalty, cond_ovf, vol_ovf, val_ovf
		FROM dams
		ORDER BY id
	`
	selectGenerators = `
		SELECT name, start_time, end_time, report, connected,
		       COALESCE(busbar, '') AS busbar, COALESCE(hydro_group_name, '') AS hydro_group_name,
		       use_pump_mode, pmax, pmin, pmax_pump, pmin_pump, eff, vomc_avg
		FROM hydro_generators
		ORDER BY id
	`
	selectGroups = `
		SELECT name, start_time, end_time, report, hg_sp_min, hg_sp_max
		FROM hydro_groups
		ORDER BY id
	`
	selectNodes = `
		SELECT name, start_time, end_time, report, formulate_bal
		FROM hydro_nodes
		ORDER BY id
	`
	selectConnections = `
		SELECT name, start_time, end_time, report, LOWER(TRIM(h_type)) AS h_type,
		       TRIM(ini) AS ini, TRIM(dest) AS dest,
		       h_max_flow, h_min_flow, h_ramp, h_delay, h_delayed_q, h_flow_penalty
		FROM hydro_connections
		ORDER BY id
	`
	selectInflowNodes = `
		SELECT name, start_time, end_time, report, inflows_qm3, plp_indep_hydro
		FROM inflow_nodes
		ORDER BY id
	`
	selectIrrigationNodes = `
		SELECT name, start_time, end_time, report, irrigations_qm3, voli
		FROM irrigation_nodes
		ORDER BY id
	`
	// flows are stored in m3/s and read as hm3 per hour
	selectInflowSeries = `
		SELECT name, time, flow_m3s * 3600.0 / 1000000.0 AS value
		FROM inflow_series
		ORDER BY name, time, id
	`
	selectIrrigationSeries = `
		SELECT name, time, irr_m3s * 3600.0 / 1000000.0 AS value
		FROM irrigation_series
		ORDER BY name, time, id
	`
	selectCalendar = `
		SELECT stage, block, time, duration_h
		FROM calendar_hours
		ORDER BY id
	`
)

// sourceRepository implements SourceRepository and SourceImporter on Postgres
type sourceRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// SourceStore reads and writes the source database
type SourceStore interface {
	SourceRepository
	SourceImporter
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) SourceStore {
	return &sourceRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// LoadSources reads every source table inside one read-only snapshot.
func (r *sourceRepository) LoadSources(ctx context.Context) (*models.Sources, error) {
	timer := time.Now()

	tx, err := r.db.BeginReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	src := &models.Sources{}
	queries := []struct {
		table string
		query string
		dest  interface{}
	}{
		{"dams", selectDams, &src.Dams},
		{"hydro_generators", selectGenerators, &src.Generators},
		{"hydro_groups", selectGroups, &src.Groups},
		{"hydro_nodes", selectNodes, &src.Nodes},
		{"hydro_connections", selectConnections, &src.Connections},
		{"inflow_nodes", selectInflowNodes, &src.InflowNodes},
		{"irrigation_nodes", selectIrrigationNodes, &src.Irrigation},
		{"inflow_series", selectInflowSeries, &src.InflowRecords},
		{"irrigation_series", selectIrrigationSeries, &src.IrrigRecords},
		{"calendar_hours", selectCalendar, &src.CalendarHours},
	}

	for _, q := range queries {
		if err := r.selectTable(ctx, tx, q.table, q.dest, q.query); err != nil {
			return nil, err
		}
	}

	if err := r.validate(src); err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "[REPO_LOAD_SOURCES] Source tables loaded", logging.Fields{
		"dams":              len(src.Dams),
		"hydro_connections": len(src.Connections),
		"inflow_records":    len(src.InflowRecords),
		"calendar_hours":    len(src.CalendarHours),
		"duration_ms":       time.Since(timer).Milliseconds(),
	})

	return src, nil
}

func (r *sourceRepository) selectTable(ctx context.Context, tx *sqlx.Tx, table string, dest interface{}, query string) error {
	if err := r.db.TxSelectContext(ctx, tx, "select_"+table, dest, query); err != nil {
		return fmt.Errorf("failed to read %s: %w", table, err)
	}
	return nil
}

func (r *sourceRepository) validate(src *models.Sources) error {
	checks := []struct {
		tag  string
		rows interface{}
	}{
		{"Dam", src.Dams},
		{"HydroGenerator", src.Generators},
		{"HydroGroup", src.Groups},
		{"HydroNode", src.Nodes},
		{"HydroConnection", src.Connections},
		{"Inflow", src.InflowNodes},
		{"Irrigation", src.Irrigation},
		{"InflowSeries", src.InflowRecords},
		{"IrrigationSeries", src.IrrigRecords},
		{"Calendar", src.CalendarHours},
	}
	for _, c := range checks {
		if err := validation.Rows(c.tag, c.rows); err != nil {
			return err
		}
	}
	return validation.HydroGroups(src.Groups)
}

// ImportSources replaces the content of every source table with src in one
// transaction. Series in parallel-list form are written in m3/s.
func (r *sourceRepository) ImportSources(ctx context.Context, src *models.Sources) error {
	timer := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"calendar_hours", "irrigation_series", "inflow_series", "irrigation_nodes", "inflow_nodes",
		"hydro_connections", "hydro_nodes", "hydro_groups", "hydro_generators", "dams",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	inserts := []struct {
		table string
		query string
		rows  interface{}
	}{
		{"dams", `INSERT INTO dams (name, start_time, end_time, report, vmax, vmin, vini, vend, scale,
			non_physical_inflow, non_physical_inflow_penalty, cond_ovf, vol_ovf, val_ovf)
			VALUES (:name, :start_time, :end_time, :report, :vmax, :vmin, :vini, :vend, :scale,
			:non_physical_inflow, :non_physical_inflow_penalty, :cond_ovf, :vol_ovf, :val_ovf)`, src.Dams},
		{"hydro_generators", `INSERT INTO hydro_generators (name, start_time, end_time, report, connected, busbar,
			hydro_group_name, use_pump_mode, pmax, pmin, pmax_pump, pmin_pump, eff, vomc_avg)
			VALUES (:name, :start_time, :end_time, :report, :connected, NULLIF(:busbar, ''),
			NULLIF(:hydro_group_name, ''), :use_pump_mode, :pmax, :pmin, :pmax_pump, :pmin_pump, :eff, :vomc_avg)`, src.Generators},
		{"hydro_groups", `INSERT INTO hydro_groups (name, start_time, end_time, report, hg_sp_min, hg_sp_max)
			VALUES (:name, :start_time, :end_time, :report, :hg_sp_min, :hg_sp_max)`, src.Groups},
		{"hydro_nodes", `INSERT INTO hydro_nodes (name, start_time, end_time, report, formulate_bal)
			VALUES (:name, :start_time, :end_time, :report, :formulate_bal)`, src.Nodes},
		{"hydro_connections", `INSERT INTO hydro_connections (name, start_time, end_time, report, h_type, ini, dest,
			h_max_flow, h_min_flow, h_ramp, h_delay, h_delayed_q, h_flow_penalty)
			VALUES (:name, :start_time, :end_time, :report, :h_type, :ini, :dest,
			:h_max_flow, :h_min_flow, :h_ramp, :h_delay, :h_delayed_q, :h_flow_penalty)`, src.Connections},
		{"inflow_nodes", `INSERT INTO inflow_nodes (name, start_time, end_time, report, inflows_qm3, plp_indep_hydro)
			VALUES (:name, :start_time, :end_time, :report, :inflows_qm3, :plp_indep_hydro)`, src.InflowNodes},
		{"irrigation_nodes", `INSERT INTO irrigation_nodes (name, start_time, end_time, report, irrigations_qm3, voli)
			VALUES (:name, :start_time, :end_time, :report, :irrigations_qm3, :voli)`, src.Irrigation},
		{"calendar_hours", `INSERT INTO calendar_hours (stage, block, time, duration_h)
			VALUES (:stage, :block, :time, :duration_h)`, src.CalendarHours},
	}

	total := 0
	for _, ins := range inserts {
		n, err := r.insertRows(ctx, tx, ins.table, ins.query, ins.rows)
		if err != nil {
			return err
		}
		total += n
	}

	for _, s := range []struct {
		table, column string
		series        []models.InflowSeries
		records       []models.SeriesRecord
	}{
		{"inflow_series", "flow_m3s", src.InflowSeries, src.InflowRecords},
		{"irrigation_series", "irr_m3s", src.IrrigSeries, src.IrrigRecords},
	} {
		n, err := r.insertSeries(ctx, tx, s.table, s.column, s.series, s.records)
		if err != nil {
			return err
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info(ctx, "[REPO_IMPORT_SOURCES] Source tables imported", logging.Fields{
		"rows":        total,
		"duration_ms": time.Since(timer).Milliseconds(),
	})
	return nil
}

func (r *sourceRepository) insertRows(ctx context.Context, tx *sqlx.Tx, table, query string, rows interface{}) (int, error) {
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	n := 0
	err = forEachRow(rows, func(row interface{}) error {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			r.metrics.RecordDBError("insert_error")
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		n++
		return nil
	})
	return n, err
}

func (r *sourceRepository) insertSeries(ctx context.Context, tx *sqlx.Tx, table, column string, series []models.InflowSeries, records []models.SeriesRecord) (int, error) {
	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (name, time, %s) VALUES ($1, $2, $3 * 1000000.0 / 3600.0)", table, column))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	n := 0
	insert := func(name string, t time.Time, hm3 float64) error {
		if _, err := stmt.ExecContext(ctx, name, t, hm3); err != nil {
			r.metrics.RecordDBError("insert_error")
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		n++
		return nil
	}

	for _, s := range series {
		if len(s.Times) != len(s.FlowPerHour) {
			return n, fmt.Errorf("series %s has %d times and %d values", s.Name, len(s.Times), len(s.FlowPerHour))
		}
		for i, t := range s.Times {
			if err := insert(s.Name, t, s.FlowPerHour[i]); err != nil {
				return n, err
			}
		}
	}
	for _, rec := range records {
		if err := insert(rec.Name, rec.Time, rec.Value); err != nil {
			return n, err
		}
	}
	return n, nil
}

func forEachRow(rows interface{}, fn func(row interface{}) error) error {
	rv := reflect.ValueOf(rows)
	if rv.Kind() != reflect.Slice {
		return fmt.Errorf("expected a slice of rows, got %s", rv.Kind())
	}
	for i := 0; i < rv.Len(); i++ {
		if err := fn(rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// HealthCheck checks the source database connection
func (r *sourceRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
