package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"deckledger.org/internal/tracker"
)

const dateLayout = "2006-01-02"

type createResultRequest struct {
	Date           string `json:"date"`
	UsedDeck       string `json:"used_deck"`
	OpponentDeck   string `json:"opponent_deck"`
	OpponentDeckID int64  `json:"opponent_deck_id"`
	PlayOrder      string `json:"play_order"`
	MatchResult    string `json:"match_result"`
	Note           string `json:"note"`
}

type patchResultRequest struct {
	Date           *string `json:"date"`
	UsedDeck       *string `json:"used_deck"`
	OpponentDeck   *string `json:"opponent_deck"`
	OpponentDeckID *int64  `json:"opponent_deck_id"`
	PlayOrder      *string `json:"play_order"`
	MatchResult    *string `json:"match_result"`
	Note           *string `json:"note"`
}

type resultResponse struct {
	ID           int64  `json:"id"`
	Date         string `json:"date"`
	UsedDeck     string `json:"used_deck"`
	OpponentDeck string `json:"opponent_deck,omitempty"`
	PlayOrder    string `json:"play_order,omitempty"`
	MatchResult  string `json:"match_result"`
	Outcome      string `json:"outcome"`
	Note         string `json:"note,omitempty"`
}

type listResultsResponse struct {
	Items []resultResponse `json:"items"`
	AsOf  time.Time        `json:"as_of"`
}

func toResultResponse(row tracker.MatchResult) resultResponse {
	return resultResponse{
		ID:           row.ID,
		Date:         row.Date.Format(dateLayout),
		UsedDeck:     row.UsedDeck,
		OpponentDeck: row.OpponentDeckName,
		PlayOrder:    row.PlayOrder,
		MatchResult:  row.Outcome,
		Outcome:      string(tracker.ClassifyOutcome(row.Outcome)),
		Note:         row.Note,
	}
}

func (a *API) handleResults(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listResults(w, r)
	case http.MethodPost:
		a.createResult(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// createResult records one game. The used and opponent deck names are
// upserted into their reference collections so manual entry never fails on
// an unknown deck.
func (a *API) createResult(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	usedDeck := strings.TrimSpace(req.UsedDeck)
	if usedDeck == "" {
		writeError(w, r, http.StatusBadRequest, "used_deck is required")
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(req.Date))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	outcome := strings.TrimSpace(req.MatchResult)
	if outcome == "" {
		outcome = tracker.DefaultOutcomeLabel
	}

	row := &tracker.MatchResult{
		OwnerID:   id.UserID,
		Date:      date,
		UsedDeck:  usedDeck,
		PlayOrder: strings.TrimSpace(req.PlayOrder),
		Outcome:   outcome,
		Note:      strings.TrimSpace(req.Note),
	}

	err := a.store.Atomic(r.Context(), func(tx tracker.Store) error {
		ctx := r.Context()
		if _, err := getOrCreateDeck(ctx, tx.Decks(ctx), id.UserID, usedDeck); err != nil {
			return err
		}
		switch {
		case req.OpponentDeckID > 0:
			deck, err := tx.OpponentDecks(ctx).Find(ctx, id.UserID, req.OpponentDeckID)
			if err != nil {
				return err
			}
			row.OpponentDeckID = &deck.ID
			row.OpponentDeckName = deck.Name
		case strings.TrimSpace(req.OpponentDeck) != "":
			deck, err := getOrCreateDeck(ctx, tx.OpponentDecks(ctx), id.UserID, strings.TrimSpace(req.OpponentDeck))
			if err != nil {
				return err
			}
			row.OpponentDeckID = &deck.ID
			row.OpponentDeckName = deck.Name
		}
		return tx.Results(ctx).Create(ctx, row)
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "tracker.result.create", map[string]any{
		"used_deck": usedDeck,
		"date":      date.Format(dateLayout),
	})
	writeJSON(w, http.StatusCreated, toResultResponse(*row))
}

// handleResultResource serves one history row: fetch, partial update, and
// delete. Updates mirror the original results page where any recorded field
// can be corrected after the fact.
func (a *API) handleResultResource(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/v1/results/")
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	resultID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || resultID <= 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		row, err := a.store.Results(ctx).Find(ctx, id.UserID, resultID)
		if err != nil {
			handleStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResultResponse(*row))

	case http.MethodPatch:
		a.patchResult(w, r, id.UserID, resultID)

	case http.MethodDelete:
		if err := a.store.Results(ctx).Delete(ctx, id.UserID, resultID); err != nil {
			handleStoreError(w, r, err)
			return
		}
		a.audit(ctx, "tracker.result.delete", map[string]any{"result_id": resultID})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) patchResult(w http.ResponseWriter, r *http.Request, ownerID, resultID int64) {
	var req patchResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()

	row, err := a.store.Results(ctx).Find(ctx, ownerID, resultID)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	if req.Date != nil {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(*req.Date))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		row.Date = parsed
	}
	if req.UsedDeck != nil {
		name := strings.TrimSpace(*req.UsedDeck)
		if name == "" {
			writeError(w, r, http.StatusBadRequest, "used_deck is required")
			return
		}
		row.UsedDeck = name
	}
	if req.PlayOrder != nil {
		row.PlayOrder = strings.TrimSpace(*req.PlayOrder)
	}
	if req.MatchResult != nil {
		outcome := strings.TrimSpace(*req.MatchResult)
		if outcome == "" {
			outcome = tracker.DefaultOutcomeLabel
		}
		row.Outcome = outcome
	}
	if req.Note != nil {
		row.Note = strings.TrimSpace(*req.Note)
	}

	err = a.store.Atomic(ctx, func(tx tracker.Store) error {
		if req.UsedDeck != nil {
			if _, err := getOrCreateDeck(ctx, tx.Decks(ctx), ownerID, row.UsedDeck); err != nil {
				return err
			}
		}
		switch {
		case req.OpponentDeckID != nil && *req.OpponentDeckID > 0:
			deck, err := tx.OpponentDecks(ctx).Find(ctx, ownerID, *req.OpponentDeckID)
			if err != nil {
				return err
			}
			row.OpponentDeckID = &deck.ID
			row.OpponentDeckName = deck.Name
		case req.OpponentDeck != nil:
			name := strings.TrimSpace(*req.OpponentDeck)
			if name == "" {
				row.OpponentDeckID = nil
				row.OpponentDeckName = ""
				break
			}
			deck, err := getOrCreateDeck(ctx, tx.OpponentDecks(ctx), ownerID, name)
			if err != nil {
				return err
			}
			row.OpponentDeckID = &deck.ID
			row.OpponentDeckName = deck.Name
		}
		return tx.Results(ctx).Update(ctx, row)
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(ctx, "tracker.result.update", map[string]any{"result_id": resultID})
	writeJSON(w, http.StatusOK, toResultResponse(*row))
}

func getOrCreateDeck(ctx context.Context, store tracker.DeckStore, ownerID int64, name string) (*tracker.Deck, error) {
	deck, err := store.FindByName(ctx, ownerID, name)
	if errors.Is(err, tracker.ErrNotFound) {
		deck = &tracker.Deck{OwnerID: ownerID, Name: name, IsActive: true}
		if err := store.Create(ctx, deck); err != nil {
			return nil, err
		}
		return deck, nil
	}
	return deck, err
}

func (a *API) listResults(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := a.store.Results(r.Context()).List(r.Context(), id.UserID, filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]resultResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toResultResponse(row))
	}
	writeJSON(w, http.StatusOK, listResultsResponse{Items: items, AsOf: time.Now().UTC()})
}

func filterFromQuery(r *http.Request) (tracker.ResultFilter, error) {
	q := r.URL.Query()
	var f tracker.ResultFilter

	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New("from must be YYYY-MM-DD")
		}
		f.DateFrom = &d
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New("to must be YYYY-MM-DD")
		}
		f.DateTo = &d
	}
	f.UsedDeck = strings.TrimSpace(q.Get("used_deck"))
	if raw := strings.TrimSpace(q.Get("opponent_deck_id")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return f, errors.New("opponent_deck_id must be a positive integer")
		}
		f.OpponentDeckID = v
	}
	f.PlayOrder = strings.TrimSpace(q.Get("play_order"))
	f.Outcome = strings.TrimSpace(q.Get("match_result"))
	f.Keyword = strings.TrimSpace(q.Get("q"))

	if sort := strings.TrimSpace(q.Get("sort")); sort != "" {
		if !tracker.SortKeys[sort] {
			return f, errors.New("unsupported sort key")
		}
		f.SortKey = sort
	}
	f.Descending = strings.EqualFold(q.Get("order"), "desc")

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > tracker.MaxListRows {
			return f, errors.New("limit must be between 1 and 2000")
		}
		f.Limit = v
	}
	return f, nil
}

// handleStats serves the aggregated win/loss breakdown over the filtered
// history.
func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = tracker.NoLimit

	rows, err := a.store.Results(r.Context()).List(r.Context(), id.UserID, filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tracker.ComputeStats(rows))
}
