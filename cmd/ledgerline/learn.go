package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/learning"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Derive and evaluate learned rules from corrections",
	}

	cmd.AddCommand(learnDeriveCmd())
	cmd.AddCommand(learnCanaryCmd())
	cmd.AddCommand(learnEffectivenessCmd())

	return cmd
}

func learnDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive",
		Short: "Derive candidate rules from recent corrections",
		Long: `Aggregate recent human corrections by merchant and propose learned vendor
rules where enough corrections agree on one category. Derived rules start
inactive; they activate only after a passing canary test and an explicit
promotion.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			orgID, err := requireOrg()
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := learning.NewService(store, learning.DefaultConfig())
			derived, err := svc.DeriveRules(ctx, orgID)
			if err != nil {
				return fmt.Errorf("rule derivation failed: %w", err)
			}

			if len(derived) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No new rules derived."))
				return nil
			}
			for i := range derived {
				r := &derived[i]
				fmt.Println(cli.FormatSuccess(fmt.Sprintf(
					"Derived %s rule %q -> %s (v%d, id %s, pending canary)",
					r.Type, r.Pattern, r.Category, r.Version, r.ID)))
			}
			return nil
		},
	}
}

func learnCanaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canary <rule-version-id>",
		Short: "Run a canary test for a rule version",
		Long: `Replay a rule version against held-out historical transactions with known
categories and record the accuracy. A zero-sample canary is recorded as
inconclusive and does not qualify the rule for promotion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := learning.NewService(store, learning.DefaultConfig())
			result, err := svc.RunCanaryTest(ctx, args[0])
			if err != nil {
				return fmt.Errorf("canary test failed: %w", err)
			}

			switch {
			case result.Inconclusive:
				fmt.Println(cli.FormatWarning(fmt.Sprintf(
					"Canary inconclusive: no held-out sample for %s", args[0])))
			case result.Passed:
				fmt.Println(cli.FormatSuccess(fmt.Sprintf(
					"Canary passed: %d/%d correct (%.1f%%, threshold %.0f%%)",
					result.Correct, result.SampleSize, result.Accuracy*100, result.Threshold*100)))
			default:
				fmt.Println(cli.FormatError(fmt.Sprintf(
					"Canary failed: %d/%d correct (%.1f%%, threshold %.0f%%)",
					result.Correct, result.SampleSize, result.Accuracy*100, result.Threshold*100)))
			}
			return nil
		},
	}
}

func learnEffectivenessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "effectiveness",
		Short: "Compute precision for active rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			orgID, err := requireOrg()
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := learning.NewService(store, learning.DefaultConfig())
			stats, err := svc.TrackEffectiveness(ctx, orgID)
			if err != nil {
				return fmt.Errorf("effectiveness tracking failed: %w", err)
			}

			if len(stats) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No active rules to evaluate."))
				return nil
			}

			widths := []int{38, 14, 16, 10}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Rule effectiveness for %s", orgID)))
			fmt.Fprintln(out, cli.TableHeaderStyle.Render(
				cli.RenderRow(widths, "RULE VERSION", "APPLICATIONS", "CORRECTED AWAY", "PRECISION")))
			for _, s := range stats {
				fmt.Fprintln(out, cli.RenderRow(widths,
					s.RuleVersionID,
					fmt.Sprintf("%d", s.Applications),
					fmt.Sprintf("%d", s.CorrectedAway),
					fmt.Sprintf("%.2f", s.Precision)))
			}
			return nil
		},
	}
}
