// Package reconcile merges a parsed archive into the live store. Reference
// data (decks, opponent decks) is upserted idempotently; match history is
// appended unconditionally. The whole merge is one atomic unit.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"deckledger.org/internal/archive"
	"deckledger.org/internal/identity"
	"deckledger.org/internal/tracker"
)

// Counts reports rows written per collection by one import.
type Counts struct {
	Decks         int `json:"decks"`
	OpponentDecks int `json:"opponent_decks"`
	Results       int `json:"results"`
}

// Engine applies archives against a Store.
type Engine struct {
	store tracker.Store
}

// New constructs an Engine.
func New(store tracker.Store) *Engine {
	return &Engine{store: store}
}

// Apply merges parsed into the owner's collections inside one transaction.
// With purge set, the owner's existing rows are deleted first (results
// before reference data) so the archive becomes authoritative. Any row-level
// failure rolls back everything; no partial counts are ever reported.
func (e *Engine) Apply(ctx context.Context, owner identity.Identity, parsed *archive.Parsed, purge bool) (Counts, error) {
	var counts Counts
	err := e.store.Atomic(ctx, func(tx tracker.Store) error {
		counts = Counts{}
		if purge {
			if err := tx.Results(ctx).DeleteAll(ctx, owner.UserID); err != nil {
				return fmt.Errorf("purge results: %w", err)
			}
			if err := tx.Decks(ctx).DeleteAll(ctx, owner.UserID); err != nil {
				return fmt.Errorf("purge decks: %w", err)
			}
			if err := tx.OpponentDecks(ctx).DeleteAll(ctx, owner.UserID); err != nil {
				return fmt.Errorf("purge opponent decks: %w", err)
			}
		}

		var err error
		if counts.Decks, err = reconcileReferenceData(ctx, tx.Decks(ctx), owner.UserID, parsed.Decks); err != nil {
			return fmt.Errorf("decks: %w", err)
		}
		if counts.OpponentDecks, err = reconcileReferenceData(ctx, tx.OpponentDecks(ctx), owner.UserID, parsed.OpponentDecks); err != nil {
			return fmt.Errorf("opponent decks: %w", err)
		}
		if counts.Results, err = appendHistory(ctx, tx, owner.UserID, parsed.Results); err != nil {
			return fmt.Errorf("results: %w", err)
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}
	return counts, nil
}

// reconcileReferenceData upserts rows by (owner, name). Existing rows only
// get their active flag updated, and only when it differs; re-applying the
// same rows is a no-op. Returns the number of rows processed.
func reconcileReferenceData(ctx context.Context, store tracker.DeckStore, ownerID int64, rows []archive.DeckRow) (int, error) {
	count := 0
	for _, row := range rows {
		existing, err := store.FindByName(ctx, ownerID, row.Name)
		switch {
		case errors.Is(err, tracker.ErrNotFound):
			if err := store.Create(ctx, &tracker.Deck{OwnerID: ownerID, Name: row.Name, IsActive: row.IsActive}); err != nil {
				return 0, err
			}
		case err != nil:
			return 0, err
		case existing.IsActive != row.IsActive:
			if err := store.SetActive(ctx, ownerID, existing.ID, row.IsActive); err != nil {
				return 0, err
			}
		}
		count++
	}
	return count, nil
}

// appendHistory inserts every result row, resolving opponent deck names via
// get-or-create. Deliberately not idempotent: history merges by appending,
// so re-importing the same archive without purge doubles the rows.
func appendHistory(ctx context.Context, tx tracker.Store, ownerID int64, rows []archive.ResultRow) (int, error) {
	opps := tx.OpponentDecks(ctx)
	results := tx.Results(ctx)
	count := 0
	for _, row := range rows {
		var oppID *int64
		if row.OpponentDeck != "" {
			opp, err := opps.FindByName(ctx, ownerID, row.OpponentDeck)
			if errors.Is(err, tracker.ErrNotFound) {
				opp = &tracker.Deck{OwnerID: ownerID, Name: row.OpponentDeck, IsActive: true}
				if err := opps.Create(ctx, opp); err != nil {
					return 0, err
				}
			} else if err != nil {
				return 0, err
			}
			oppID = &opp.ID
		}

		outcome := row.Result
		if outcome == "" {
			outcome = tracker.DefaultOutcomeLabel
		}
		if err := results.Create(ctx, &tracker.MatchResult{
			OwnerID:        ownerID,
			Date:           row.Date,
			UsedDeck:       row.UsedDeck,
			OpponentDeckID: oppID,
			PlayOrder:      row.PlayOrder,
			Outcome:        outcome,
			Note:           row.Note,
		}); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
