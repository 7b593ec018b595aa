package learning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/model"
)

// RecordCorrection applies a human correction: the transaction takes the new
// category at full confidence, the correction is stored as learning input,
// and the correction history is inspected for oscillation.
func (s *Service) RecordCorrection(ctx context.Context, correction model.Correction) error {
	if correction.ID == "" {
		correction.ID = uuid.NewString()
	}
	if correction.CreatedAt.IsZero() {
		correction.CreatedAt = s.now()
	}

	if err := s.store.SaveCorrection(ctx, &correction); err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}
	if err := s.store.UpdateTransactionCategory(ctx, correction.TransactionID, correction.NewCategory, 1.0, false, model.DecisionHuman); err != nil {
		return fmt.Errorf("failed to apply correction: %w", err)
	}

	// Oscillation tracking is secondary: a detection failure must not void
	// the correction itself.
	if err := s.detectOscillation(ctx, correction); err != nil {
		slog.Warn("Oscillation detection failed",
			"transaction_id", correction.TransactionID,
			"error", err)
	}
	return nil
}

// detectOscillation inspects the trailing correction window; when the newest
// category revisits one previously held inside the window, the transaction's
// oscillation entry is created or extended.
func (s *Service) detectOscillation(ctx context.Context, latest model.Correction) error {
	corrections, err := s.store.GetCorrectionsByTransaction(ctx, latest.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to load correction history: %w", err)
	}
	if len(corrections) < 2 {
		return nil
	}

	window := corrections
	if len(window) > s.cfg.OscillationWindow {
		window = window[len(window)-s.cfg.OscillationWindow:]
	}

	// The category sequence over the window: the oldest correction's prior
	// category followed by each corrected-to category.
	sequence := []model.OscillationEntry{{
		Category: window[0].OldCategory,
		At:       window[0].CreatedAt,
	}}
	for _, c := range window {
		sequence = append(sequence, model.OscillationEntry{
			Category: c.NewCategory,
			At:       c.CreatedAt,
			ActorID:  c.ActorID,
		})
	}

	newest := sequence[len(sequence)-1]
	revisited := false
	for _, e := range sequence[:len(sequence)-1] {
		if e.Category == newest.Category {
			revisited = true
			break
		}
	}
	if !revisited {
		return nil
	}

	osc, err := s.store.GetOscillation(ctx, latest.TransactionID)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to load oscillation: %w", err)
	}
	if osc == nil {
		osc = &model.Oscillation{
			ID:            uuid.NewString(),
			OrgID:         latest.OrgID,
			TransactionID: latest.TransactionID,
			FirstSeen:     s.now(),
		}
	}

	osc.Entries = sequence
	osc.Count = len(sequence) - 1
	osc.LastSeen = s.now()
	osc.Resolved = false
	osc.FinalCategory = ""

	if err := s.store.UpsertOscillation(ctx, osc); err != nil {
		return fmt.Errorf("failed to save oscillation: %w", err)
	}

	slog.Info("Oscillation detected",
		"transaction_id", latest.TransactionID,
		"count", osc.Count,
		"category", newest.Category)
	return nil
}

// ResolveOscillation pins a final category on an oscillating transaction and
// closes the oscillation entry.
func (s *Service) ResolveOscillation(ctx context.Context, transactionID, finalCategory, actorID string) error {
	osc, err := s.store.GetOscillation(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to load oscillation: %w", err)
	}
	if osc.Resolved {
		return nil
	}

	if err := s.store.UpdateTransactionCategory(ctx, transactionID, finalCategory, 1.0, false, model.DecisionHuman); err != nil {
		return fmt.Errorf("failed to pin final category: %w", err)
	}

	osc.Resolved = true
	osc.FinalCategory = finalCategory
	osc.LastSeen = s.now()
	osc.Entries = append(osc.Entries, model.OscillationEntry{
		Category: finalCategory,
		At:       s.now(),
		ActorID:  actorID,
	})

	if err := s.store.UpsertOscillation(ctx, osc); err != nil {
		return fmt.Errorf("failed to close oscillation: %w", err)
	}
	return nil
}
