package tracker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemory implements Store with in-process state. It backs tests and
// DSN-less runs; replace with the pg store for durable deployments.
type InMemory struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	decks   map[int64]Deck
	opps    map[int64]Deck
	results map[int64]MatchResult
	nextID  int64
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{st: &memState{
		decks:   make(map[int64]Deck),
		opps:    make(map[int64]Deck),
		results: make(map[int64]MatchResult),
		nextID:  1,
	}}
}

func (s *memState) clone() *memState {
	out := &memState{
		decks:   make(map[int64]Deck, len(s.decks)),
		opps:    make(map[int64]Deck, len(s.opps)),
		results: make(map[int64]MatchResult, len(s.results)),
		nextID:  s.nextID,
	}
	for k, v := range s.decks {
		out.decks[k] = v
	}
	for k, v := range s.opps {
		out.opps[k] = v
	}
	for k, v := range s.results {
		out.results[k] = v
	}
	return out
}

func (m *InMemory) Decks(ctx context.Context) DeckStore {
	return &memDecks{m: m, opponent: false}
}

func (m *InMemory) OpponentDecks(ctx context.Context) DeckStore {
	return &memDecks{m: m, opponent: true}
}

func (m *InMemory) Results(ctx context.Context) ResultStore {
	return &memResults{m: m}
}

// Atomic snapshots the state before running fn and restores the snapshot if
// fn fails, so partial writes never survive.
func (m *InMemory) Atomic(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type memDecks struct {
	m        *InMemory
	opponent bool
}

func (d *memDecks) table() map[int64]Deck {
	if d.opponent {
		return d.m.st.opps
	}
	return d.m.st.decks
}

func (d *memDecks) List(ctx context.Context, ownerID int64) ([]Deck, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	var out []Deck
	for _, deck := range d.table() {
		if deck.OwnerID == ownerID {
			out = append(out, deck)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsActive != out[j].IsActive {
			return out[i].IsActive
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *memDecks) Find(ctx context.Context, ownerID, id int64) (*Deck, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	deck, ok := d.table()[id]
	if !ok || deck.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	out := deck
	return &out, nil
}

func (d *memDecks) FindByName(ctx context.Context, ownerID int64, name string) (*Deck, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	for _, deck := range d.table() {
		if deck.OwnerID == ownerID && deck.Name == name {
			out := deck
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (d *memDecks) Create(ctx context.Context, deck *Deck) error {
	if strings.TrimSpace(deck.Name) == "" {
		return ErrInvalidInput
	}
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	for _, existing := range d.table() {
		if existing.OwnerID == deck.OwnerID && existing.Name == deck.Name {
			return ErrAlreadyExists
		}
	}
	deck.ID = d.m.st.nextID
	d.m.st.nextID++
	now := time.Now().UTC()
	deck.CreatedAt = now
	deck.UpdatedAt = now
	d.table()[deck.ID] = *deck
	return nil
}

func (d *memDecks) Update(ctx context.Context, ownerID, id int64, name string, active bool) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidInput
	}
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	deck, ok := d.table()[id]
	if !ok || deck.OwnerID != ownerID {
		return ErrNotFound
	}
	for _, existing := range d.table() {
		if existing.OwnerID == ownerID && existing.ID != id && existing.Name == name {
			return ErrAlreadyExists
		}
	}
	deck.Name = name
	deck.IsActive = active
	deck.UpdatedAt = time.Now().UTC()
	d.table()[id] = deck
	return nil
}

func (d *memDecks) SetActive(ctx context.Context, ownerID, id int64, active bool) error {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	deck, ok := d.table()[id]
	if !ok || deck.OwnerID != ownerID {
		return ErrNotFound
	}
	deck.IsActive = active
	deck.UpdatedAt = time.Now().UTC()
	d.table()[id] = deck
	return nil
}

func (d *memDecks) DeleteAll(ctx context.Context, ownerID int64) error {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	for id, deck := range d.table() {
		if deck.OwnerID == ownerID {
			delete(d.table(), id)
		}
	}
	return nil
}

type memResults struct {
	m *InMemory
}

func (r *memResults) List(ctx context.Context, ownerID int64, f ResultFilter) ([]MatchResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []MatchResult
	for _, row := range r.m.st.results {
		if row.OwnerID != ownerID {
			continue
		}
		if row.OpponentDeckID != nil {
			if opp, ok := r.m.st.opps[*row.OpponentDeckID]; ok {
				row.OpponentDeckName = opp.Name
			}
		}
		if !matchesFilter(row, f) {
			continue
		}
		out = append(out, row)
	}
	sortResults(out, f)
	if f.Limit != NoLimit {
		limit := f.Limit
		if limit <= 0 || limit > MaxListRows {
			limit = MaxListRows
		}
		if len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}

func matchesFilter(row MatchResult, f ResultFilter) bool {
	if f.DateFrom != nil && row.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && row.Date.After(*f.DateTo) {
		return false
	}
	if f.UsedDeck != "" && row.UsedDeck != f.UsedDeck {
		return false
	}
	if f.OpponentDeckID != 0 && (row.OpponentDeckID == nil || *row.OpponentDeckID != f.OpponentDeckID) {
		return false
	}
	if f.PlayOrder != "" && row.PlayOrder != f.PlayOrder {
		return false
	}
	if f.Outcome != "" && row.Outcome != f.Outcome {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(row.Note), kw) &&
			!strings.Contains(strings.ToLower(row.UsedDeck), kw) &&
			!strings.Contains(strings.ToLower(row.OpponentDeckName), kw) {
			return false
		}
	}
	return true
}

func sortResults(rows []MatchResult, f ResultFilter) {
	key := f.SortKey
	if !SortKeys[key] {
		key = "date"
	}
	less := func(a, b MatchResult) bool {
		switch key {
		case "id":
			return a.ID < b.ID
		case "used_deck":
			return a.UsedDeck < b.UsedDeck
		case "opponent_deck":
			return a.OpponentDeckName < b.OpponentDeckName
		case "play_order":
			return a.PlayOrder < b.PlayOrder
		case "match_result":
			return a.Outcome < b.Outcome
		default:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			return a.ID < b.ID
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if f.Descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func (r *memResults) Find(ctx context.Context, ownerID, id int64) (*MatchResult, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.st.results[id]
	if !ok || row.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	if row.OpponentDeckID != nil {
		if opp, ok := r.m.st.opps[*row.OpponentDeckID]; ok {
			row.OpponentDeckName = opp.Name
		}
	}
	out := row
	return &out, nil
}

func (r *memResults) Create(ctx context.Context, row *MatchResult) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row.ID = r.m.st.nextID
	r.m.st.nextID++
	row.CreatedAt = time.Now().UTC()
	r.m.st.results[row.ID] = *row
	return nil
}

func (r *memResults) Update(ctx context.Context, row *MatchResult) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	existing, ok := r.m.st.results[row.ID]
	if !ok || existing.OwnerID != row.OwnerID {
		return ErrNotFound
	}
	row.CreatedAt = existing.CreatedAt
	r.m.st.results[row.ID] = *row
	return nil
}

func (r *memResults) Delete(ctx context.Context, ownerID, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.st.results[id]
	if !ok || row.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.m.st.results, id)
	return nil
}

func (r *memResults) DeleteAll(ctx context.Context, ownerID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, row := range r.m.st.results {
		if row.OwnerID == ownerID {
			delete(r.m.st.results, id)
		}
	}
	return nil
}
