package tracker

import "context"

// Store describes persistence operations required by the tracker core.
// Every operation is scoped by the owning user id; implementations enforce
// that scoping at the query level.
type Store interface {
	Decks(ctx context.Context) DeckStore
	OpponentDecks(ctx context.Context) DeckStore
	Results(ctx context.Context) ResultStore

	// Atomic runs fn so that all writes made through the passed store
	// commit together or not at all.
	Atomic(ctx context.Context, fn func(Store) error) error
}

// DeckStore manages one of the two reference-data collections.
type DeckStore interface {
	List(ctx context.Context, ownerID int64) ([]Deck, error)
	Find(ctx context.Context, ownerID, id int64) (*Deck, error)
	FindByName(ctx context.Context, ownerID int64, name string) (*Deck, error)
	Create(ctx context.Context, d *Deck) error
	Update(ctx context.Context, ownerID, id int64, name string, active bool) error
	SetActive(ctx context.Context, ownerID, id int64, active bool) error
	DeleteAll(ctx context.Context, ownerID int64) error
}

// ResultStore manages match history. Archive imports only ever append;
// Find, Update and Delete serve manual row maintenance.
type ResultStore interface {
	List(ctx context.Context, ownerID int64, f ResultFilter) ([]MatchResult, error)
	Find(ctx context.Context, ownerID, id int64) (*MatchResult, error)
	Create(ctx context.Context, r *MatchResult) error
	Update(ctx context.Context, r *MatchResult) error
	Delete(ctx context.Context, ownerID, id int64) error
	DeleteAll(ctx context.Context, ownerID int64) error
}
