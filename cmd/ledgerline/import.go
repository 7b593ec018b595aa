package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import transactions from a CSV file with a header row:

  date,description,merchant,mcc,amount_cents,currency

Duplicates (same org, date, amount, merchant, and description) are
detected by content hash and skipped silently, so re-importing the same
file is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	orgID, err := requireOrg()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	txns, err := parseTransactionsCSV(f, orgID)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		return common.NewUserError(fmt.Sprintf("no transactions in %s", args[0]), common.ErrNoTransactions)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.SaveTransactions(ctx, txns); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	slog.Info("Import complete", "org", orgID, "file", args[0], "transactions", len(txns))
	return nil
}

func parseTransactionsCSV(r io.Reader, orgID string) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != "date" {
		return nil, fmt.Errorf("unexpected header %q (want date,description,merchant,mcc,amount_cents,currency)", header[0])
	}

	var txns []model.Transaction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line++

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", line, record[0], err)
		}
		amount, err := strconv.ParseInt(record[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q: %w", line, record[4], err)
		}

		txn := model.Transaction{
			ID:           uuid.New().String(),
			OrgID:        orgID,
			Date:         date,
			Description:  record[1],
			MerchantName: record[2],
			MCC:          record[3],
			Currency:     record[5],
			AmountCents:  amount,
			Source:       model.SourceImport,
		}
		txn.Hash = txn.GenerateHash()
		txns = append(txns, txn)
	}
	return txns, nil
}
