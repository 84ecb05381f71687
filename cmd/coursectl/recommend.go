package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"course-eligibility-engine/internal/services/matcher"
)

func newQuestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "Print the quiz questions in the --lang edition",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd)
			if err != nil {
				return err
			}
			svc, err := newMatcher(cmd, snap)
			if err != nil {
				return err
			}

			lang, _ := cmd.Flags().GetString("lang")
			set, err := svc.Questions(lang)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), set)
		},
	}
}

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <request.json>",
		Short: "Evaluate a student request file and print the result as JSON",
		Long: `Reads a request with "student", "answers" and optional "lang".
With answers the full ranked recommendation is printed; without answers
only the eligibility check is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read request: %w", err)
			}
			var req matcher.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("invalid request %s: %w", args[0], err)
			}
			if req.Language == "" {
				req.Language, _ = cmd.Flags().GetString("lang")
			}
			// Email is never sent from the CLI
			req.Email = ""

			snap, err := loadSnapshot(cmd)
			if err != nil {
				return err
			}
			svc, err := newMatcher(cmd, snap)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			if len(req.Answers) == 0 {
				report, err := svc.CheckEligibility(ctx, req.Student, req.Language)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			}

			rec, err := svc.Recommend(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	return cmd
}
