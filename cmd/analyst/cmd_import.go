package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/analystloop/query/postgres"
)

var importCmd = &cobra.Command{
	Use:   "import <export.json>",
	Short: "Import a chat export into PostgreSQL",
	Long: "import creates the sessions and messages tables if needed and inserts every\n" +
		"session and message of the export in one transaction. Existing sessions are skipped.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(false); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	sessions, err := postgres.DecodeExport(f)
	if err != nil {
		return err
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	stats, err := postgres.NewImporter(pool, logger).Import(ctx, sessions)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d session(s) and %d message(s)\n", stats.Sessions, stats.Messages)
	return nil
}
