package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func TestParseTransactionsCSV(t *testing.T) {
	input := strings.Join([]string{
		"date,description,merchant,mcc,amount_cents,currency",
		"2026-03-02,STARBUCKS STORE 1234,Starbucks,5814,-575,USD",
		"2026-03-03,STRIPE PAYOUT ST-104,Stripe,,184250,USD",
	}, "\n")

	txns, err := parseTransactionsCSV(strings.NewReader(input), "org-1")
	require.NoError(t, err)
	require.Len(t, txns, 2)

	first := txns[0]
	assert.Equal(t, "org-1", first.OrgID)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "Starbucks", first.MerchantName)
	assert.Equal(t, "5814", first.MCC)
	assert.Equal(t, int64(-575), first.AmountCents)
	assert.Equal(t, model.SourceImport, first.Source)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, first.Hash)

	assert.Empty(t, txns[1].MCC)
	assert.Equal(t, int64(184250), txns[1].AmountCents)
}

func TestParseTransactionsCSVEmptyFile(t *testing.T) {
	input := "date,description,merchant,mcc,amount_cents,currency\n"

	txns, err := parseTransactionsCSV(strings.NewReader(input), "org-1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestParseTransactionsCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "wrong header",
			input:   "timestamp,description,merchant,mcc,amount_cents,currency\n",
			wantMsg: "unexpected header",
		},
		{
			name: "bad date",
			input: "date,description,merchant,mcc,amount_cents,currency\n" +
				"03/02/2026,lunch,Starbucks,5814,-575,USD\n",
			wantMsg: "invalid date",
		},
		{
			name: "bad amount",
			input: "date,description,merchant,mcc,amount_cents,currency\n" +
				"2026-03-02,lunch,Starbucks,5814,-5.75,USD\n",
			wantMsg: "invalid amount",
		},
		{
			name: "wrong column count",
			input: "date,description,merchant,mcc,amount_cents,currency\n" +
				"2026-03-02,lunch,Starbucks,5814,-575\n",
			wantMsg: "failed to read record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTransactionsCSV(strings.NewReader(tt.input), "org-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
