package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/learning"
	"github.com/ledgerline/ledgerline/internal/model"
)

func correctCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <transaction-id> <category>",
		Short: "Record a human correction",
		Long: `Re-categorize a transaction by hand. The correction is recorded as
ground truth (confidence 1.0) and feeds rule derivation and oscillation
tracking.`,
		Args: cobra.ExactArgs(2),
		RunE: runCorrect,
	}

	cmd.Flags().String("actor", "", "Who is making the correction")
	cmd.AddCommand(oscillationsCmd())
	cmd.AddCommand(resolveOscillationCmd())

	return cmd
}

func runCorrect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	txnID, newCategory := args[0], args[1]
	actor, _ := cmd.Flags().GetString("actor")
	if actor == "" {
		actor = "cli"
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	txn, err := store.GetTransactionByID(ctx, txnID)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	category, err := store.GetCategoryBySlug(ctx, newCategory)
	if err != nil {
		return fmt.Errorf("unknown category %q: %w", newCategory, err)
	}

	svc := learning.NewService(store, learning.DefaultConfig())
	correction := model.Correction{
		ID:            uuid.New().String(),
		OrgID:         txn.OrgID,
		TransactionID: txn.ID,
		OldCategory:   txn.Category,
		NewCategory:   category.Slug,
		ActorID:       actor,
		CreatedAt:     time.Now().UTC(),
	}
	if err := svc.RecordCorrection(ctx, correction); err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Corrected %s: %s -> %s",
		txn.ID, orDash(txn.Category), category.Slug)))
	return nil
}

func oscillationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oscillations",
		Short: "List transactions with unstable category history",
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

			oscillations, err := store.ListUnresolvedOscillations(ctx, orgID)
			if err != nil {
				return fmt.Errorf("failed to list oscillations: %w", err)
			}

			if len(oscillations) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No unresolved oscillations."))
				return nil
			}

			for i := range oscillations {
				o := &oscillations[i]
				sequence := make([]string, 0, len(o.Entries))
				for _, e := range o.Entries {
					sequence = append(sequence, e.Category)
				}
				fmt.Println(cli.FormatWarning(fmt.Sprintf(
					"%s flipped %d times: %s (last %s)",
					o.TransactionID, o.Count,
					strings.Join(sequence, " -> "),
					o.LastSeen.Format("2006-01-02"))))
			}
			return nil
		},
	}
}

func resolveOscillationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <transaction-id> <category>",
		Short: "Pin a final category for an oscillating transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, _ := cmd.Flags().GetString("actor")
			if actor == "" {
				actor = "cli"
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := learning.NewService(store, learning.DefaultConfig())
			if err := svc.ResolveOscillation(ctx, args[0], args[1], actor); err != nil {
				return fmt.Errorf("failed to resolve oscillation: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Pinned %s to %s", args[0], args[1])))
			return nil
		},
	}
	cmd.Flags().String("actor", "", "Who is resolving the oscillation")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
