package loaders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// Files names the source files inside a data directory. Empty optional
// entries, or optional files that do not exist, are skipped.
type Files struct {
	Dams             string `yaml:"dams"`
	Generators       string `yaml:"generators"`
	Groups           string `yaml:"groups"`
	Nodes            string `yaml:"nodes"`
	Connections      string `yaml:"connections"`
	InflowNodes      string `yaml:"inflow_nodes"`
	IrrigationNodes  string `yaml:"irrigation_nodes"`
	InflowSeries     string `yaml:"inflow_series"`
	IrrigationSeries string `yaml:"irrigation_series"`
	Calendar         string `yaml:"calendar"`
}

// DefaultFiles returns the conventional file names.
func DefaultFiles() Files {
	return Files{
		Dams:             "Dam.csv",
		Generators:       "HydroGenerator.csv",
		Groups:           "HydroGroup.csv",
		Nodes:            "HydroNode.csv",
		Connections:      "HydroConnection.csv",
		InflowNodes:      "Inflow.csv",
		IrrigationNodes:  "Irrigation.csv",
		InflowSeries:     "inflows_long.csv",
		IrrigationSeries: "irrigation_long.csv",
		Calendar:         "calendar_hours.csv",
	}
}

// LoadDirectory reads every source file of dir. Catalogs, connections,
// inflow series and the calendar are required.
func LoadDirectory(ctx context.Context, dir string, files Files) (*models.Sources, error) {
	src := &models.Sources{}

	steps := []struct {
		file     string
		required bool
		load     func(path string) error
	}{
		{files.Dams, true, func(p string) (err error) { src.Dams, err = LoadDams(p); return }},
		{files.Generators, true, func(p string) (err error) { src.Generators, err = LoadHydroGenerators(p); return }},
		{files.Groups, true, func(p string) (err error) { src.Groups, err = LoadHydroGroups(p); return }},
		{files.Nodes, false, func(p string) (err error) { src.Nodes, err = LoadHydroNodes(p); return }},
		{files.Connections, true, func(p string) (err error) { src.Connections, err = LoadHydroConnections(p); return }},
		{files.InflowNodes, false, func(p string) (err error) { src.InflowNodes, err = LoadInflowNodes(p); return }},
		{files.IrrigationNodes, false, func(p string) (err error) { src.Irrigation, err = LoadIrrigationNodes(p); return }},
		{files.InflowSeries, true, func(p string) (err error) {
			src.InflowSeries, err = LoadSeriesLong(p, InflowFlowColumn)
			return
		}},
		{files.IrrigationSeries, false, func(p string) (err error) {
			src.IrrigSeries, err = LoadSeriesLong(p, IrrigationFlowColumn)
			return
		}},
		{files.Calendar, true, func(p string) (err error) { src.CalendarHours, err = LoadCalendarHours(p); return }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if step.file == "" {
			if step.required {
				return nil, fmt.Errorf("required source file name not configured")
			}
			continue
		}

		path := filepath.Join(dir, step.file)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !step.required {
			continue
		}

		if err := step.load(path); err != nil {
			return nil, fmt.Errorf("load %s: %w", step.file, err)
		}
	}

	return src, nil
}

// DirectorySource serves raw sources from a CSV data directory.
type DirectorySource struct {
	Dir   string
	Files Files
}

// NewDirectorySource returns a source over dir using files.
func NewDirectorySource(dir string, files Files) *DirectorySource {
	return &DirectorySource{Dir: dir, Files: files}
}

// LoadSources reads every configured file of the directory.
func (d *DirectorySource) LoadSources(ctx context.Context) (*models.Sources, error) {
	return LoadDirectory(ctx, d.Dir, d.Files)
}

// HealthCheck reports whether the data directory is reachable.
func (d *DirectorySource) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(d.Dir)
	if err != nil {
		return fmt.Errorf("data directory health check failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory health check failed: %s is not a directory", d.Dir)
	}
	return nil
}
