package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/drift"
	"github.com/ledgerline/ledgerline/internal/model"
)

func driftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Detect shifts in categorization behavior",
	}

	cmd.AddCommand(driftRunCmd())
	cmd.AddCommand(driftListCmd())
	cmd.AddCommand(driftAckCmd())

	return cmd
}

func driftRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Snapshot the current period and compare against the previous one",
		Long: `Snapshot category distribution and per-source confidence statistics for
the current period, then compare against the previous snapshot. Changes
beyond the configured threshold raise alerts; re-running the same period
updates magnitudes without duplicating alerts.`,
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

			cfg := drift.DefaultConfig()
			if viper.IsSet("drift.change_threshold") {
				cfg.ChangeThreshold = viper.GetFloat64("drift.change_threshold")
			}
			if cfg.ChangeThreshold <= 0 || cfg.ChangeThreshold >= 1 {
				return fmt.Errorf("%w: drift.change_threshold must be between 0 and 1", common.ErrInvalidConfig)
			}

			detector := drift.NewDetector(store, cfg)
			alerts, err := detector.Run(ctx, orgID, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("drift detection failed: %w", err)
			}

			if len(alerts) == 0 {
				fmt.Println(cli.FormatSuccess("No drift detected"))
				return nil
			}
			for i := range alerts {
				printDriftAlert(&alerts[i])
			}
			return nil
		},
	}
}

func driftListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drift alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			all, _ := cmd.Flags().GetBool("all")

			orgID, err := requireOrg()
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			alerts, err := store.ListDriftAlerts(ctx, orgID, !all)
			if err != nil {
				return fmt.Errorf("failed to list drift alerts: %w", err)
			}

			if len(alerts) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No drift alerts."))
				return nil
			}
			for i := range alerts {
				printDriftAlert(&alerts[i])
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Include acknowledged alerts")
	return cmd
}

func driftAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge a drift alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.AcknowledgeDriftAlert(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to acknowledge alert: %w", err)
			}
			fmt.Println(cli.FormatSuccess("Acknowledged " + args[0]))
			return nil
		},
	}
}

func printDriftAlert(alert *model.DriftAlert) {
	line := fmt.Sprintf("[%s] %s %s: %.3f -> %.3f (%+.1f%%)",
		alert.Severity, alert.DetectedOn.Format("2006-01-02"), alert.Metric,
		alert.Previous, alert.Current, alert.PctChange)
	if alert.Acknowledged {
		line += " (ack)"
	}

	switch alert.Severity {
	case model.SeverityCritical, model.SeverityHigh:
		fmt.Println(cli.FormatError(line))
	case model.SeverityMedium:
		fmt.Println(cli.FormatWarning(line))
	default:
		fmt.Println(cli.SubtleStyle.Render(cli.InfoIcon + " " + line))
	}
}
