package tracker

import "time"

// Deck is a reference-data row: one named deck per owner, soft-disabled via
// the active flag. The same shape serves both the player's own decks and the
// opponent deck master; (owner, name) is unique within each collection.
type Deck struct {
	ID        int64
	OwnerID   int64
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchResult is one recorded game. Rows are append-only history: they are
// never updated or deduplicated by the import path, only inserted.
type MatchResult struct {
	ID             int64
	OwnerID        int64
	Date           time.Time
	UsedDeck       string
	OpponentDeckID *int64
	// OpponentDeckName carries the joined opponent deck name on reads and
	// is ignored on writes.
	OpponentDeckName string
	PlayOrder        string
	Outcome          string
	Note             string
	CreatedAt        time.Time
}

// ResultFilter narrows and orders owner-scoped result listings.
type ResultFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	UsedDeck       string
	OpponentDeckID int64
	PlayOrder      string
	Outcome        string
	Keyword        string
	SortKey        string
	Descending     bool
	Limit          int
}

// MaxListRows caps result listings regardless of the requested limit.
// Pass NoLimit to read the full history, as the export path does.
const (
	MaxListRows = 2000
	NoLimit     = -1
)

// SortKeys enumerates the permitted result ordering columns.
var SortKeys = map[string]bool{
	"date":          true,
	"id":            true,
	"used_deck":     true,
	"opponent_deck": true,
	"play_order":    true,
	"match_result":  true,
}
