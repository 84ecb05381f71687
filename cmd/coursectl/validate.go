package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a catalog directory and report integrity warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")

			snap, err := loadSnapshot(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stats := snap.Stats()
			fmt.Fprintf(out, "Catalog %s (%s)\n", stats.Version, stats.Source)
			fmt.Fprintf(out, "  requirements  %d\n", stats.Requirements)
			fmt.Fprintf(out, "  courses       %d\n", stats.Courses)
			fmt.Fprintf(out, "  tagged        %d\n", stats.Tagged)
			fmt.Fprintf(out, "  quiz editions %s\n", strings.Join(snap.Banks.Languages(), ", "))

			if len(snap.Warnings) == 0 {
				fmt.Fprintln(out, "\nNo warnings")
				return nil
			}

			fmt.Fprintf(out, "\n%d warnings\n", len(snap.Warnings))
			fmt.Fprintln(out, strings.Repeat("─", 60))
			for _, w := range snap.Warnings {
				fmt.Fprintf(out, "%-22s  %-20s  %s\n", w.Kind, w.CourseID, w.Detail)
			}

			if strict {
				return fmt.Errorf("%d integrity warnings", len(snap.Warnings))
			}
			return nil
		},
	}

	cmd.Flags().Bool("strict", false, "Fail when any warning is reported")
	return cmd
}
