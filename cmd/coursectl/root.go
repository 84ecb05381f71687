package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/eligibility"
	"course-eligibility-engine/internal/services/matcher"
	"course-eligibility-engine/internal/utils"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coursectl",
		Short:         "Course eligibility engine tools",
		Long:          "coursectl checks catalog data and evaluates students against it without running the API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			return utils.InitLogger(level)
		},
	}

	root.PersistentFlags().String("data", envOr("DATA_DIR", "./data"), "Catalog directory (overrides DATA_DIR env var)")
	root.PersistentFlags().String("lang", envOr("DEFAULT_LANGUAGE", "en"), "Default language")
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("credit-grade", "C", "Lowest grade that counts as a credit")
	root.PersistentFlags().String("distinction-grade", "A-", "Lowest grade that counts as a distinction")
	root.PersistentFlags().Float64("fair-band", 5, "Points below a cutoff that still rate Fair")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newQuestionsCmd())
	root.AddCommand(newRecommendCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

// loadSnapshot builds a snapshot from the --data directory.
func loadSnapshot(cmd *cobra.Command) (*catalog.Snapshot, error) {
	dir, _ := cmd.Flags().GetString("data")
	lang, _ := cmd.Flags().GetString("lang")

	source := catalog.NewFileSource(dir)
	raw, err := source.Load(commandContext(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dir, err)
	}
	return catalog.Build(source.Name(), raw, lang, utils.GetLogger())
}

// newMatcher creates a matcher over a static snapshot with the flag policy.
func newMatcher(cmd *cobra.Command, snap *catalog.Snapshot) (*matcher.Service, error) {
	credit, _ := cmd.Flags().GetString("credit-grade")
	distinction, _ := cmd.Flags().GetString("distinction-grade")
	band, _ := cmd.Flags().GetFloat64("fair-band")

	policy, err := eligibility.NewPolicy(credit, distinction, band)
	if err != nil {
		return nil, err
	}
	return matcher.NewService(catalog.NewStaticStore(snap), policy, utils.GetLogger().With(zap.String("cmd", cmd.Name()))), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
