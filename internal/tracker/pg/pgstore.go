// Package pg implements the tracker store on PostgreSQL through
// database/sql with the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"deckledger.org/internal/tracker"
)

// Store implements tracker.Store. Inside Atomic, q is the transaction;
// outside it is the pool.
type Store struct {
	db *sql.DB
	q  querier
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ tracker.Store = (*Store)(nil)

// Open connects to dsn with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewStore(db), nil
}

// NewStore wraps an already open pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Decks(ctx context.Context) tracker.DeckStore {
	return &deckStore{q: s.q, table: "decks"}
}

func (s *Store) OpponentDecks(ctx context.Context) tracker.DeckStore {
	return &deckStore{q: s.q, table: "opponent_decks"}
}

func (s *Store) Results(ctx context.Context) tracker.ResultStore {
	return &resultStore{q: s.q}
}

// Atomic runs fn inside a transaction. Nested calls reuse the surrounding
// transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tracker.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// deckStore serves both reference collections; table is a trusted constant.
type deckStore struct {
	q     querier
	table string
}

func (d *deckStore) List(ctx context.Context, ownerID int64) ([]tracker.Deck, error) {
	rows, err := d.q.QueryContext(ctx, fmt.Sprintf(`
		select id, owner_id, name, is_active, created_at, updated_at
		from %s where owner_id = $1
		order by is_active desc, name, id
	`, d.table), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tracker.Deck
	for rows.Next() {
		var deck tracker.Deck
		if err := rows.Scan(&deck.ID, &deck.OwnerID, &deck.Name, &deck.IsActive, &deck.CreatedAt, &deck.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, deck)
	}
	return out, rows.Err()
}

func (d *deckStore) Find(ctx context.Context, ownerID, id int64) (*tracker.Deck, error) {
	return d.scanOne(d.q.QueryRowContext(ctx, fmt.Sprintf(`
		select id, owner_id, name, is_active, created_at, updated_at
		from %s where owner_id = $1 and id = $2
	`, d.table), ownerID, id))
}

func (d *deckStore) FindByName(ctx context.Context, ownerID int64, name string) (*tracker.Deck, error) {
	return d.scanOne(d.q.QueryRowContext(ctx, fmt.Sprintf(`
		select id, owner_id, name, is_active, created_at, updated_at
		from %s where owner_id = $1 and name = $2
	`, d.table), ownerID, name))
}

func (d *deckStore) scanOne(row *sql.Row) (*tracker.Deck, error) {
	var deck tracker.Deck
	err := row.Scan(&deck.ID, &deck.OwnerID, &deck.Name, &deck.IsActive, &deck.CreatedAt, &deck.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (d *deckStore) Create(ctx context.Context, deck *tracker.Deck) error {
	if strings.TrimSpace(deck.Name) == "" {
		return tracker.ErrInvalidInput
	}
	err := d.q.QueryRowContext(ctx, fmt.Sprintf(`
		insert into %s(owner_id, name, is_active, created_at, updated_at)
		values ($1, $2, $3, now(), now())
		returning id, created_at, updated_at
	`, d.table), deck.OwnerID, deck.Name, deck.IsActive).Scan(&deck.ID, &deck.CreatedAt, &deck.UpdatedAt)
	if isUniqueViolation(err) {
		return tracker.ErrAlreadyExists
	}
	return err
}

func (d *deckStore) Update(ctx context.Context, ownerID, id int64, name string, active bool) error {
	if strings.TrimSpace(name) == "" {
		return tracker.ErrInvalidInput
	}
	res, err := d.q.ExecContext(ctx, fmt.Sprintf(`
		update %s set name = $3, is_active = $4, updated_at = now()
		where owner_id = $1 and id = $2
	`, d.table), ownerID, id, name, active)
	if isUniqueViolation(err) {
		return tracker.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (d *deckStore) SetActive(ctx context.Context, ownerID, id int64, active bool) error {
	res, err := d.q.ExecContext(ctx, fmt.Sprintf(`
		update %s set is_active = $3, updated_at = now()
		where owner_id = $1 and id = $2
	`, d.table), ownerID, id, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (d *deckStore) DeleteAll(ctx context.Context, ownerID int64) error {
	_, err := d.q.ExecContext(ctx, fmt.Sprintf(`delete from %s where owner_id = $1`, d.table), ownerID)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

type resultStore struct {
	q querier
}

var resultSortColumns = map[string]string{
	"date":          "r.date",
	"id":            "r.id",
	"used_deck":     "r.used_deck",
	"opponent_deck": "coalesce(o.name, '')",
	"play_order":    "r.play_order",
	"match_result":  "r.match_result",
}

func (r *resultStore) List(ctx context.Context, ownerID int64, f tracker.ResultFilter) ([]tracker.MatchResult, error) {
	query := strings.Builder{}
	query.WriteString(`
		select r.id, r.owner_id, r.date, r.used_deck, r.opponent_deck_id,
		       coalesce(o.name, ''), r.play_order, r.match_result, r.note, r.created_at
		from results r
		left join opponent_decks o on o.id = r.opponent_deck_id and o.owner_id = r.owner_id
		where r.owner_id = $1`)
	args := []any{ownerID}

	add := func(clause string, value any) {
		args = append(args, value)
		query.WriteString(fmt.Sprintf(" and %s $%d", clause, len(args)))
	}
	if f.DateFrom != nil {
		add("r.date >=", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("r.date <=", *f.DateTo)
	}
	if f.UsedDeck != "" {
		add("r.used_deck =", f.UsedDeck)
	}
	if f.OpponentDeckID != 0 {
		add("r.opponent_deck_id =", f.OpponentDeckID)
	}
	if f.PlayOrder != "" {
		add("r.play_order =", f.PlayOrder)
	}
	if f.Outcome != "" {
		add("r.match_result =", f.Outcome)
	}
	if f.Keyword != "" {
		kw := "%" + f.Keyword + "%"
		args = append(args, kw)
		n := len(args)
		query.WriteString(fmt.Sprintf(
			" and (r.note ilike $%d or r.used_deck ilike $%d or coalesce(o.name, '') ilike $%d)", n, n, n))
	}

	column, ok := resultSortColumns[f.SortKey]
	if !ok {
		column = resultSortColumns["date"]
	}
	direction := "asc"
	if f.Descending {
		direction = "desc"
	}
	query.WriteString(fmt.Sprintf(" order by %s %s, r.id %s", column, direction, direction))

	if f.Limit != tracker.NoLimit {
		limit := f.Limit
		if limit <= 0 || limit > tracker.MaxListRows {
			limit = tracker.MaxListRows
		}
		args = append(args, limit)
		query.WriteString(fmt.Sprintf(" limit $%d", len(args)))
	}

	rows, err := r.q.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tracker.MatchResult
	for rows.Next() {
		var row tracker.MatchResult
		var oppID sql.NullInt64
		if err := rows.Scan(&row.ID, &row.OwnerID, &row.Date, &row.UsedDeck, &oppID,
			&row.OpponentDeckName, &row.PlayOrder, &row.Outcome, &row.Note, &row.CreatedAt); err != nil {
			return nil, err
		}
		if oppID.Valid {
			id := oppID.Int64
			row.OpponentDeckID = &id
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *resultStore) Find(ctx context.Context, ownerID, id int64) (*tracker.MatchResult, error) {
	var row tracker.MatchResult
	var oppID sql.NullInt64
	err := r.q.QueryRowContext(ctx, `
		select r.id, r.owner_id, r.date, r.used_deck, r.opponent_deck_id,
		       coalesce(o.name, ''), r.play_order, r.match_result, r.note, r.created_at
		from results r
		left join opponent_decks o on o.id = r.opponent_deck_id and o.owner_id = r.owner_id
		where r.owner_id = $1 and r.id = $2
	`, ownerID, id).Scan(&row.ID, &row.OwnerID, &row.Date, &row.UsedDeck, &oppID,
		&row.OpponentDeckName, &row.PlayOrder, &row.Outcome, &row.Note, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if oppID.Valid {
		v := oppID.Int64
		row.OpponentDeckID = &v
	}
	return &row, nil
}

func (r *resultStore) Create(ctx context.Context, row *tracker.MatchResult) error {
	var oppID sql.NullInt64
	if row.OpponentDeckID != nil {
		oppID = sql.NullInt64{Int64: *row.OpponentDeckID, Valid: true}
	}
	return r.q.QueryRowContext(ctx, `
		insert into results(owner_id, date, used_deck, opponent_deck_id, play_order, match_result, note, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, now())
		returning id, created_at
	`, row.OwnerID, row.Date, row.UsedDeck, oppID, row.PlayOrder, row.Outcome, row.Note).
		Scan(&row.ID, &row.CreatedAt)
}

func (r *resultStore) Update(ctx context.Context, row *tracker.MatchResult) error {
	var oppID sql.NullInt64
	if row.OpponentDeckID != nil {
		oppID = sql.NullInt64{Int64: *row.OpponentDeckID, Valid: true}
	}
	res, err := r.q.ExecContext(ctx, `
		update results
		set date = $3, used_deck = $4, opponent_deck_id = $5, play_order = $6, match_result = $7, note = $8
		where owner_id = $1 and id = $2
	`, row.OwnerID, row.ID, row.Date, row.UsedDeck, oppID, row.PlayOrder, row.Outcome, row.Note)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *resultStore) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.q.ExecContext(ctx, `delete from results where owner_id = $1 and id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *resultStore) DeleteAll(ctx context.Context, ownerID int64) error {
	_, err := r.q.ExecContext(ctx, `delete from results where owner_id = $1`, ownerID)
	return err
}
