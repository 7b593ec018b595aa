package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerline/ledgerline/internal/engine"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/storage"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize transactions",
		Long: `Run the two-pass engine over uncategorized transactions.

Pass 1 scores deterministic signals (MCC, vendor patterns, keywords) and
applies guardrails. When its confidence clears the acceptance threshold the
result sticks without any model call; otherwise the language model fallback
runs with the Pass-1 signals as advisory context.

Examples:
  ledgerline categorize --org acme              # Categorize the backlog
  ledgerline categorize --org acme --limit 50   # At most 50 transactions
  ledgerline categorize --org acme --id txn-42  # One transaction, verbose
  ledgerline categorize --org acme --dry-run    # Preview without saving`,
		RunE: runCategorize,
	}

	cmd.Flags().IntP("limit", "n", 0, "Maximum transactions to process (0 = all)")
	cmd.Flags().String("id", "", "Categorize a single transaction by id")
	cmd.Flags().Bool("dry-run", false, "Preview decisions without saving")

	_ = viper.BindPFlag("categorize.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("categorize.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit := viper.GetInt("categorize.limit")
	dryRun := viper.GetBool("categorize.dry_run")
	txnID, _ := cmd.Flags().GetString("id")

	orgID, err := requireOrg()
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	hybrid, err := buildHybrid(ctx, store, orgID)
	if err != nil {
		return err
	}

	if txnID != "" {
		return categorizeOne(cmd, store, hybrid, txnID, dryRun)
	}

	txns, err := store.GetTransactionsToCategorize(ctx, orgID, limit)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txns) == 0 {
		slog.Info("Nothing to categorize", "org", orgID)
		return nil
	}

	slog.Info("Starting categorization", "org", orgID, "transactions", len(txns), "dry_run", dryRun)

	results, err := hybrid.CategorizeBatch(ctx, txns)
	if err != nil {
		return fmt.Errorf("categorization failed: %w", err)
	}

	bar := progressbar.NewOptions(len(results),
		progressbar.OptionSetDescription("Saving decisions"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var accepted, fallback, review int
	for i, res := range results {
		switch res.Source {
		case model.DecisionModel:
			fallback++
		default:
			accepted++
		}
		if res.NeedsReview {
			review++
		}

		if !dryRun {
			if err := store.UpdateTransactionCategory(ctx, txns[i].ID, res.Category,
				res.Confidence, res.NeedsReview, res.Source); err != nil {
				return fmt.Errorf("failed to save decision for %s: %w", txns[i].ID, err)
			}
		}
		_ = bar.Add(1)
	}

	slog.Info("Categorization complete",
		"org", orgID,
		"total", len(results),
		"signal_pass", accepted,
		"model_fallback", fallback,
		"needs_review", review,
		"dry_run", dryRun)

	return nil
}

func categorizeOne(cmd *cobra.Command, store *storage.SQLiteStore, hybrid *engine.Hybrid, txnID string, dryRun bool) error {
	ctx := cmd.Context()

	txn, err := store.GetTransactionByID(ctx, txnID)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	res, err := hybrid.Categorize(ctx, *txn)
	if err != nil {
		return fmt.Errorf("categorization failed: %w", err)
	}

	slog.Info("Decision",
		"transaction", txnID,
		"merchant", txn.MerchantName,
		"category", res.Category,
		"confidence", fmt.Sprintf("%.2f", res.Confidence),
		"source", res.Source,
		"needs_review", res.NeedsReview)
	for _, line := range res.Rationale {
		slog.Info("Rationale", "detail", line)
	}

	if dryRun {
		return nil
	}
	return store.UpdateTransactionCategory(ctx, txnID, res.Category, res.Confidence, res.NeedsReview, res.Source)
}
