// Package archive reads and writes the portable backup format: a zip
// container holding three CSV entries (decks, opponent decks, results).
// The format doubles as the cross-instance migration format and must stay
// stable across versions.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"deckledger.org/internal/tracker"
)

const (
	decksEntry   = "decks.csv"
	oppsEntry    = "opponent_decks.csv"
	resultsEntry = "results.csv"

	dateLayout = "2006-01-02"
)

var (
	deckHeader   = []string{"name", "is_active"}
	resultHeader = []string{"date", "used_deck", "opponent_deck", "play_order", "match_result", "note"}
)

// ErrInvalidArchive is returned when the uploaded bytes are not a readable
// zip container. Everything below container level is recovered per row.
var ErrInvalidArchive = errors.New("archive: not a valid archive")

// DeckRow is one reference-data row in the archive.
type DeckRow struct {
	Name     string
	IsActive bool
}

// ResultRow is one match-history row in the archive. Labels are carried
// verbatim; classification happens downstream.
type ResultRow struct {
	Date         time.Time
	UsedDeck     string
	OpponentDeck string
	PlayOrder    string
	Result       string
	Note         string
}

// Parsed is the typed content of an imported archive. Entries missing from
// the container parse as empty slices.
type Parsed struct {
	Decks         []DeckRow
	OpponentDecks []DeckRow
	Results       []ResultRow
}

// Codec serializes and parses archives.
type Codec struct {
	now func() time.Time
}

// Option configures Codec behavior.
type Option func(*Codec)

// WithClock overrides the time source used for unparseable dates.
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// New constructs a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export writes all three entries, header row included, even when a
// collection is empty. Stored labels are emitted verbatim so re-importing a
// backup reproduces the rows exactly.
func (c *Codec) Export(decks, opponentDecks []tracker.Deck, results []tracker.MatchResult) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeEntry(zw, decksEntry, deckHeader, deckRecords(decks)); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, oppsEntry, deckHeader, deckRecords(opponentDecks)); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, resultsEntry, resultHeader, resultRecords(results)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deckRecords(decks []tracker.Deck) [][]string {
	out := make([][]string, 0, len(decks))
	for _, d := range decks {
		active := "0"
		if d.IsActive {
			active = "1"
		}
		out = append(out, []string{d.Name, active})
	}
	return out
}

func resultRecords(results []tracker.MatchResult) [][]string {
	out := make([][]string, 0, len(results))
	for _, r := range results {
		out = append(out, []string{
			r.Date.Format(dateLayout),
			r.UsedDeck,
			r.OpponentDeckName,
			r.PlayOrder,
			r.Outcome,
			r.Note,
		})
	}
	return out
}

func writeEntry(zw *zip.Writer, name string, header []string, records [][]string) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import parses whichever of the three entries are present. A missing entry
// yields an empty slice, rows with blank required fields are dropped and
// unparseable dates fall back to today; only an unreadable container fails.
func (c *Codec) Import(data []byte) (*Parsed, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ErrInvalidArchive
	}

	parsed := &Parsed{}
	for _, f := range zr.File {
		switch f.Name {
		case decksEntry:
			parsed.Decks = c.readDecks(f)
		case oppsEntry:
			parsed.OpponentDecks = c.readDecks(f)
		case resultsEntry:
			parsed.Results = c.readResults(f)
		}
	}
	return parsed, nil
}

func (c *Codec) readDecks(f *zip.File) []DeckRow {
	var out []DeckRow
	for _, row := range readRows(f) {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			continue
		}
		out = append(out, DeckRow{Name: name, IsActive: parseBool(row["is_active"])})
	}
	return out
}

func (c *Codec) readResults(f *zip.File) []ResultRow {
	var out []ResultRow
	for _, row := range readRows(f) {
		date, err := time.Parse(dateLayout, strings.TrimSpace(row["date"]))
		if err != nil {
			now := c.now().UTC()
			date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		}
		out = append(out, ResultRow{
			Date:         date,
			UsedDeck:     strings.TrimSpace(row["used_deck"]),
			OpponentDeck: strings.TrimSpace(row["opponent_deck"]),
			PlayOrder:    strings.TrimSpace(row["play_order"]),
			Result:       strings.TrimSpace(row["match_result"]),
			Note:         strings.TrimSpace(row["note"]),
		})
	}
	return out
}

// readRows decodes one CSV entry into header-keyed maps. Short records map
// their missing columns to ""; a mid-stream decode error keeps the rows
// already read rather than failing the import.
func readRows(f *zip.File) []map[string]string {
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			break
		}
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(rec) {
				row[key] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
