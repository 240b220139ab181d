package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryDeckUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	decks := store.Decks(ctx)

	if err := decks.Create(ctx, &Deck{OwnerID: 1, Name: "Aggro", IsActive: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := decks.Create(ctx, &Deck{OwnerID: 1, Name: "Aggro", IsActive: true})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	// Same name for another owner is fine.
	if err := decks.Create(ctx, &Deck{OwnerID: 2, Name: "Aggro", IsActive: true}); err != nil {
		t.Fatalf("create for other owner: %v", err)
	}
	// The opponent deck collection is independent.
	if err := store.OpponentDecks(ctx).Create(ctx, &Deck{OwnerID: 1, Name: "Aggro", IsActive: true}); err != nil {
		t.Fatalf("create opponent deck: %v", err)
	}
}

func TestInMemoryAtomicRollback(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	if err := store.Decks(ctx).Create(ctx, &Deck{OwnerID: 1, Name: "Keep", IsActive: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(tx Store) error {
		if err := tx.Decks(ctx).Create(ctx, &Deck{OwnerID: 1, Name: "Doomed", IsActive: true}); err != nil {
			return err
		}
		if err := tx.Results(ctx).Create(ctx, &MatchResult{OwnerID: 1, Date: time.Now(), UsedDeck: "Keep", Outcome: "win"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	decks, err := store.Decks(ctx).List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(decks) != 1 || decks[0].Name != "Keep" {
		t.Fatalf("rollback left partial state: %+v", decks)
	}
	results, err := store.Results(ctx).List(ctx, 1, ResultFilter{})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after rollback, got %d", len(results))
	}
}

func TestInMemoryResultFilterAndSort(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	results := store.Results(ctx)

	oppID := int64(0)
	opp := &Deck{OwnerID: 1, Name: "Control", IsActive: true}
	if err := store.OpponentDecks(ctx).Create(ctx, opp); err != nil {
		t.Fatalf("create opponent: %v", err)
	}
	oppID = opp.ID

	rows := []MatchResult{
		{OwnerID: 1, Date: day("2024-01-01"), UsedDeck: "Aggro", OpponentDeckID: &oppID, Outcome: "win", Note: "sideboard plan worked"},
		{OwnerID: 1, Date: day("2024-01-03"), UsedDeck: "Combo", Outcome: "loss"},
		{OwnerID: 1, Date: day("2024-01-02"), UsedDeck: "Aggro", Outcome: "win"},
		{OwnerID: 2, Date: day("2024-01-04"), UsedDeck: "Aggro", Outcome: "win"},
	}
	for i := range rows {
		if err := results.Create(ctx, &rows[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := results.List(ctx, 1, ResultFilter{SortKey: "date", Descending: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("owner scoping failed, got %d rows", len(got))
	}
	if !got[0].Date.After(got[2].Date) {
		t.Fatalf("descending sort failed: %v .. %v", got[0].Date, got[2].Date)
	}

	got, err = results.List(ctx, 1, ResultFilter{UsedDeck: "Aggro"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("used deck filter failed, got %d", len(got))
	}

	got, err = results.List(ctx, 1, ResultFilter{OpponentDeckID: oppID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].OpponentDeckName != "Control" {
		t.Fatalf("opponent filter/join failed: %+v", got)
	}
}

func TestInMemoryListCap(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	results := store.Results(ctx)
	for i := 0; i < MaxListRows+5; i++ {
		row := MatchResult{OwnerID: 1, Date: day("2024-01-01"), UsedDeck: fmt.Sprintf("deck-%d", i), Outcome: "win"}
		if err := results.Create(ctx, &row); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := results.List(ctx, 1, ResultFilter{Limit: MaxListRows + 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != MaxListRows {
		t.Fatalf("expected cap at %d, got %d", MaxListRows, len(got))
	}
}
