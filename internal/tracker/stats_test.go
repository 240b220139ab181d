package tracker

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeStatsMixedLegacyLabels(t *testing.T) {
	results := []MatchResult{
		{Date: day("2024-01-01"), UsedDeck: "Aggro", OpponentDeckName: "Control", PlayOrder: "先行", Outcome: "〇"},
		{Date: day("2024-01-02"), UsedDeck: "Aggro", OpponentDeckName: "Control", PlayOrder: "first", Outcome: "win"},
		{Date: day("2024-01-03"), UsedDeck: "Aggro", OpponentDeckName: "Midrange", PlayOrder: "後攻", Outcome: "×"},
		{Date: day("2024-01-04"), UsedDeck: "Combo", OpponentDeckName: "Control", PlayOrder: "second", Outcome: "両敗"},
	}

	stats := ComputeStats(results)

	if stats.Overall.Total != 4 || stats.Overall.Wins != 2 || stats.Overall.Losses != 1 || stats.Overall.Other != 1 {
		t.Fatalf("unexpected overall: %+v", stats.Overall)
	}
	if stats.Overall.WinRate == nil || *stats.Overall.WinRate < 66.6 || *stats.Overall.WinRate > 66.7 {
		t.Fatalf("unexpected win rate: %v", stats.Overall.WinRate)
	}

	if len(stats.ByPlayOrder) != 2 {
		t.Fatalf("expected two play-order buckets, got %d", len(stats.ByPlayOrder))
	}
	if stats.ByPlayOrder[0].Order != PlayFirst || stats.ByPlayOrder[0].Wins != 2 {
		t.Fatalf("legacy 先行 rows not merged with first: %+v", stats.ByPlayOrder[0])
	}

	if stats.ByDeck[0].UsedDeck != "Aggro" || stats.ByDeck[0].Total != 3 {
		t.Fatalf("unexpected deck leader: %+v", stats.ByDeck[0])
	}

	if stats.Matchups[0].UsedDeck != "Aggro" || stats.Matchups[0].OpponentDeck != "Control" || stats.Matchups[0].Total != 2 {
		t.Fatalf("unexpected top matchup: %+v", stats.Matchups[0])
	}
}

func TestComputeStatsNoDecidedGames(t *testing.T) {
	stats := ComputeStats([]MatchResult{
		{Date: day("2024-02-01"), UsedDeck: "Aggro", Outcome: "両敗"},
	})
	if stats.Overall.WinRate != nil {
		t.Fatalf("expected nil win rate without decided games, got %v", *stats.Overall.WinRate)
	}
	if stats.Overall.Other != 1 {
		t.Fatalf("unexpected other count: %+v", stats.Overall)
	}
}
