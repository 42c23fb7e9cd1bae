package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/Pinzun/simula-ameba/internal/app"
	"github.com/Pinzun/simula-ameba/internal/config"
	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/internal/services"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "", "Directory containing source CSV files (overrides HYDRO_DATA_DIR)")
	source := flag.String("source", "", "Source backend: csv or postgres (overrides HYDRO_SOURCE)")
	naturalMode := flag.String("natural-mode", "", "Natural arc check: permissive or strict")
	strict := flag.Bool("strict", false, "Fail on ambiguous or unresolved inflow routes")
	reportOut := flag.String("report", "", "Write the build report as JSON to this file")
	modelOut := flag.String("out", "", "Write the assembled model as JSON to this file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Hydro.DataDir = *dataDir
	}
	if *source != "" {
		cfg.Hydro.Source = strings.ToLower(*source)
	}
	if *naturalMode != "" {
		cfg.Hydro.NaturalMode = strings.ToLower(*naturalMode)
	}
	if *strict {
		cfg.Hydro.StrictAmbiguous = true
		cfg.Hydro.StrictUnresolved = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "hydro-builder")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[BUILDER_START] Starting hydro model build", logging.Fields{
		"version":  app.Version,
		"source":   cfg.Hydro.Source,
		"data_dir": cfg.Hydro.DataDir,
	})

	metricsCollector := metrics.NewCollector("hydro_builder")

	repo, closeSource, err := app.OpenSource(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[BUILDER_ERROR] Failed to open source backend", logging.Fields{}, err)
	}
	defer closeSource()

	hydroService := services.NewHydroService(cfg.BuildOptions(), logger, metricsCollector)
	data, report, buildErr := hydroService.Build(ctx, repo)

	if *reportOut != "" && report != nil {
		if err := writeJSON(*reportOut, report); err != nil {
			logger.Error(ctx, "[BUILDER_REPORT_ERROR] Failed to write report", logging.Fields{
				"path": *reportOut,
			}, err)
		}
	}

	if buildErr != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", buildErr)
		os.Exit(1)
	}

	if *modelOut != "" {
		if err := writeJSON(*modelOut, newModelDocument(data)); err != nil {
			logger.Fatal(ctx, "[BUILDER_OUTPUT_ERROR] Failed to write model", logging.Fields{
				"path": *modelOut,
			}, err)
		}
	}

	printSummary(data, report)

	logger.Info(ctx, "[BUILDER_COMPLETE] Build completed successfully", logging.Fields{
		"build_id":         report.BuildID,
		"duration_seconds": report.Duration.Seconds(),
	})
}

func printSummary(data *models.HydroData, report *models.BuildReport) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("HYDRO MODEL BUILD COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Build ID:            %s\n", report.BuildID)
	fmt.Printf("Version:             %s\n", data.Metadata["version"])
	fmt.Printf("Reservoirs:          %d\n", len(data.Reservoirs.Names))
	fmt.Printf("Hydro Groups:        %d\n", len(data.Generators.Groups))
	fmt.Printf("Stages / Blocks:     %d / %d\n", len(data.Calendar.Stages), len(data.Calendar.Blocks))

	counts := data.Graph.ArcCounts()
	lists := make([]string, 0, len(counts))
	for l := range counts {
		lists = append(lists, l)
	}
	sort.Strings(lists)
	for _, l := range lists {
		fmt.Printf("Arcs %-15s %d\n", l+":", counts[l])
	}

	fmt.Printf("Reservoir Entries:   %d\n", len(data.Aggregates.NaturalReservoir))
	fmt.Printf("Hydro Group Entries: %d\n", len(data.Aggregates.NaturalHydroGroup))
	fmt.Printf("Irrigation Entries:  %d\n", len(data.Aggregates.Irrigation))
	fmt.Printf("Basins:              %d\n", report.Topology.Basins)
	fmt.Printf("Duration:            %v\n", report.Duration)

	if n := len(report.Graph.AmbiguousRoutes); n > 0 {
		fmt.Printf("\nAmbiguous routes (%d):\n", n)
		for i, r := range report.Graph.AmbiguousRoutes {
			if i >= models.DefaultSampleSize {
				fmt.Printf("  ... and %d more\n", n-i)
				break
			}
			fmt.Printf("  - %s -> %s (candidates %s)\n", r.Inflow, r.Chosen, strings.Join(r.Candidates, ", "))
		}
	}
	if u := report.Assembly.Unresolved; u != nil && u.Count > 0 {
		fmt.Printf("\nUnresolved inflows dropped: %d entries, %.3f hm3 (sample: %s)\n",
			u.Count, report.Assembly.UnresolvedVolume, strings.Join(u.Samples, ", "))
	}
}

// modelDocument is the JSON export of a model with its aggregates flattened
// into sorted entries.
type modelDocument struct {
	*models.HydroData
	Aggregates map[string][]models.BlockEntry `json:"aggregates"`
}

func newModelDocument(data *models.HydroData) modelDocument {
	return modelDocument{
		HydroData: data,
		Aggregates: map[string][]models.BlockEntry{
			services.AggregateNaturalReservoir:  data.Aggregates.NaturalReservoir.Entries(""),
			services.AggregateNaturalHydroGroup: data.Aggregates.NaturalHydroGroup.Entries(""),
			services.AggregateIrrigation:        data.Aggregates.Irrigation.Entries(""),
		},
	}
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
