package tracker

import "sort"

// Summary aggregates match outcomes. WinRate is computed over decided games
// (wins + losses) and is nil when no game was decided.
type Summary struct {
	Total   int      `json:"total"`
	Wins    int      `json:"wins"`
	Losses  int      `json:"losses"`
	Other   int      `json:"other"`
	WinRate *float64 `json:"win_rate"`
}

// PlayOrderSummary is the per-play-order split; Order is "first", "second"
// or "" for rows without a recognized play order.
type PlayOrderSummary struct {
	Order string `json:"play_order"`
	Summary
}

// DeckSummary aggregates by used deck.
type DeckSummary struct {
	UsedDeck string `json:"used_deck"`
	Summary
}

// MatchupSummary aggregates by (used deck, opponent deck) pair.
type MatchupSummary struct {
	UsedDeck     string `json:"used_deck"`
	OpponentDeck string `json:"opponent_deck"`
	Summary
}

// Stats is the full aggregation served by the stats endpoint.
type Stats struct {
	Overall     Summary            `json:"overall"`
	ByPlayOrder []PlayOrderSummary `json:"by_play_order"`
	ByDeck      []DeckSummary      `json:"by_deck"`
	Matchups    []MatchupSummary   `json:"matchups"`
}

func (s *Summary) add(outcome Outcome) {
	s.Total++
	switch outcome {
	case OutcomeWin:
		s.Wins++
	case OutcomeLoss:
		s.Losses++
	default:
		s.Other++
	}
}

func (s *Summary) finish() {
	decided := s.Wins + s.Losses
	if decided > 0 {
		rate := float64(s.Wins) / float64(decided) * 100.0
		s.WinRate = &rate
	}
}

// ComputeStats aggregates result rows. Legacy result and play-order labels
// are classified here; the stored rows are never rewritten.
func ComputeStats(results []MatchResult) Stats {
	var stats Stats
	byOrder := map[string]*Summary{}
	byDeck := map[string]*Summary{}
	type matchupKey struct{ used, opp string }
	byMatchup := map[matchupKey]*Summary{}

	for _, row := range results {
		outcome := ClassifyOutcome(row.Outcome)
		stats.Overall.add(outcome)

		order := NormalizePlayOrder(row.PlayOrder)
		if byOrder[order] == nil {
			byOrder[order] = &Summary{}
		}
		byOrder[order].add(outcome)

		if byDeck[row.UsedDeck] == nil {
			byDeck[row.UsedDeck] = &Summary{}
		}
		byDeck[row.UsedDeck].add(outcome)

		key := matchupKey{used: row.UsedDeck, opp: row.OpponentDeckName}
		if byMatchup[key] == nil {
			byMatchup[key] = &Summary{}
		}
		byMatchup[key].add(outcome)
	}

	stats.Overall.finish()

	for order, sum := range byOrder {
		sum.finish()
		stats.ByPlayOrder = append(stats.ByPlayOrder, PlayOrderSummary{Order: order, Summary: *sum})
	}
	sort.Slice(stats.ByPlayOrder, func(i, j int) bool {
		return playOrderRank(stats.ByPlayOrder[i].Order) < playOrderRank(stats.ByPlayOrder[j].Order)
	})

	for deck, sum := range byDeck {
		sum.finish()
		stats.ByDeck = append(stats.ByDeck, DeckSummary{UsedDeck: deck, Summary: *sum})
	}
	sort.Slice(stats.ByDeck, func(i, j int) bool {
		if stats.ByDeck[i].Total != stats.ByDeck[j].Total {
			return stats.ByDeck[i].Total > stats.ByDeck[j].Total
		}
		return stats.ByDeck[i].UsedDeck < stats.ByDeck[j].UsedDeck
	})

	for key, sum := range byMatchup {
		sum.finish()
		stats.Matchups = append(stats.Matchups, MatchupSummary{
			UsedDeck:     key.used,
			OpponentDeck: key.opp,
			Summary:      *sum,
		})
	}
	sort.Slice(stats.Matchups, func(i, j int) bool {
		a, b := stats.Matchups[i], stats.Matchups[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.UsedDeck != b.UsedDeck {
			return a.UsedDeck < b.UsedDeck
		}
		return a.OpponentDeck < b.OpponentDeck
	})

	return stats
}

func playOrderRank(order string) int {
	switch order {
	case PlayFirst:
		return 0
	case PlaySecond:
		return 1
	default:
		return 2
	}
}
