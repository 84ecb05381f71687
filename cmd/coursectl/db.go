package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/database"
)

func connect(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.DatabaseConfigured() {
		return nil, fmt.Errorf("set DATABASE_URL or DB_HOST to use the database")
	}
	return database.New(commandContext(cmd), cfg)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog and run history tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate the --data catalog and replace the database catalog with it",
		RunE: func(cmd *cobra.Command, args []string) error {
			allowWarnings, _ := cmd.Flags().GetBool("allow-warnings")

			dir, _ := cmd.Flags().GetString("data")
			source := catalog.NewFileSource(dir)
			raw, err := source.Load(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", dir, err)
			}
			lang, _ := cmd.Flags().GetString("lang")
			snap, err := catalog.Build(source.Name(), raw, lang, nil)
			if err != nil {
				return err
			}
			if len(snap.Warnings) > 0 && !allowWarnings {
				return fmt.Errorf("catalog has %d integrity warnings; run validate or pass --allow-warnings", len(snap.Warnings))
			}

			db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := commandContext(cmd)
			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			stats, err := database.NewCatalogRepository(db).ReplaceCatalog(ctx, raw.Requirements, raw.Courses, raw.Tags)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported catalog %s: %d requirements, %d courses, %d tags\n",
				snap.Version, stats.Requirements, stats.Courses, stats.Tags)
			return nil
		},
	}

	cmd.Flags().Bool("allow-warnings", false, "Import even when integrity warnings are reported")
	return cmd
}
