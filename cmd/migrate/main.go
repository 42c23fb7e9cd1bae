package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Pinzun/simula-ameba/internal/app"
	"github.com/Pinzun/simula-ameba/internal/config"
	"github.com/Pinzun/simula-ameba/internal/loaders"
	"github.com/Pinzun/simula-ameba/internal/repository"
	"github.com/Pinzun/simula-ameba/pkg/database"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down or none")
	migrationsDir := flag.String("migrations", "migrations", "Directory containing migration files")
	seedDir := flag.String("seed", "", "Import the CSV sources of this directory after migrating")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "hydro-migrate")
	metricsCollector := metrics.NewCollector("hydro_migrate")
	ctx := context.Background()

	db, err := database.NewPostgresDB(app.DatabaseConfig(cfg), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	if *direction != "none" {
		if err := migrate(ctx, db, *migrationsDir, *direction); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migration completed successfully")
	}

	if *seedDir != "" {
		if *direction == "down" {
			fmt.Fprintln(os.Stderr, "Refusing to seed after a down migration")
			os.Exit(1)
		}

		src, err := loaders.LoadDirectory(ctx, *seedDir, cfg.Hydro.Files)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load seed directory: %v\n", err)
			os.Exit(1)
		}

		repo := repository.NewSourceRepository(db, logger, metricsCollector)
		if err := repo.ImportSources(ctx, src); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to import sources: %v\n", err)
			os.Exit(1)
		}

		logger.Info(ctx, "[MIGRATE_SEED] Source tables seeded", logging.Fields{
			"seed_dir": *seedDir,
			"counts":   src.Counts(),
		})
		fmt.Println("Seed completed successfully")
	}
}

func migrate(ctx context.Context, db *database.PostgresDB, dir, direction string) error {
	var migrationFile string
	switch direction {
	case "up":
		migrationFile = "001_create_schema.up.sql"
	case "down":
		migrationFile = "001_create_schema.down.sql"
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	content, err := os.ReadFile(filepath.Join(dir, migrationFile))
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	fmt.Printf("Running migration: %s\n", migrationFile)

	_, err = db.ExecContext(ctx, "migration_"+direction, string(content))
	return err
}
