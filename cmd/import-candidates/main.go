package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tripplanner/internal/config"
	"tripplanner/internal/logger"
	"tripplanner/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dataDir    string
		replace    bool
		initSchema bool
	)

	cmd := &cobra.Command{
		Use:           "import-candidates",
		Short:         "Load flights, hotels and activities CSV files into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Setup(cfg.Logging)

			if dataDir == "" {
				dataDir = cfg.Planner.DataDir
			}

			err = runImport(cmd.Context(), cfg, dataDir, replace, initSchema)
			if err != nil {
				log.Error().Err(err).Msg("Import failed")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding flights.csv, hotels.csv and activities.csv (default PLANNER_DATA_DIR)")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete existing rows of each table before importing")
	cmd.Flags().BoolVar(&initSchema, "init-schema", false, "create tables and indexes before importing")
	return cmd
}

func runImport(ctx context.Context, cfg *config.Config, dataDir string, replace, initSchema bool) error {
	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if initSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info().Msg("Schema applied")
	}

	tables, err := repository.NewCSVSource(dataDir, repository.DefaultRelaxLimits).LoadAll()
	if err != nil {
		return err
	}

	total := 0
	for _, table := range repository.CandidateTables {
		n, err := repo.ImportCandidates(ctx, table, tables[table], replace)
		if err != nil {
			return fmt.Errorf("import %s: %w", table, err)
		}
		total += n
		log.Info().Str("table", table).Int("rows", n).Bool("replace", replace).Msg("Imported candidates")
	}

	log.Info().Str("dir", dataDir).Int("total", total).Msg("Import complete")
	return nil
}
