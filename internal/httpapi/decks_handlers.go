package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"deckledger.org/internal/tracker"
)

// deckAccessor selects one of the two reference collections; the handlers
// below serve /v1/decks and /v1/opponent-decks identically.
type deckAccessor func(tracker.Store, context.Context) tracker.DeckStore

type createDeckRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

type patchDeckRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

type deckResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDeckResponse(d tracker.Deck) deckResponse {
	return deckResponse{
		ID:        d.ID,
		Name:      d.Name,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (a *API) deckCollection(access deckAccessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		store := access(a.store, ctx)

		switch r.Method {
		case http.MethodGet:
			decks, err := store.List(ctx, id.UserID)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "internal error")
				return
			}
			items := make([]deckResponse, 0, len(decks))
			for _, d := range decks {
				items = append(items, toDeckResponse(d))
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})

		case http.MethodPost:
			var req createDeckRequest
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			name := strings.TrimSpace(req.Name)
			if name == "" {
				writeError(w, r, http.StatusBadRequest, "name is required")
				return
			}
			active := true
			if req.IsActive != nil {
				active = *req.IsActive
			}
			deck := &tracker.Deck{OwnerID: id.UserID, Name: name, IsActive: active}
			if err := store.Create(ctx, deck); err != nil {
				handleStoreError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, toDeckResponse(*deck))

		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	}
}

func (a *API) deckResource(access deckAccessor, prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}
		raw := strings.TrimPrefix(r.URL.Path, prefix)
		if raw == "" || strings.Contains(raw, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		deckID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || deckID <= 0 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		ctx := r.Context()
		store := access(a.store, ctx)

		switch r.Method {
		case http.MethodGet:
			deck, err := store.Find(ctx, id.UserID, deckID)
			if err != nil {
				handleStoreError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, toDeckResponse(*deck))

		case http.MethodPatch:
			var req patchDeckRequest
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			deck, err := store.Find(ctx, id.UserID, deckID)
			if err != nil {
				handleStoreError(w, r, err)
				return
			}
			name := deck.Name
			if req.Name != nil {
				name = strings.TrimSpace(*req.Name)
			}
			active := deck.IsActive
			if req.IsActive != nil {
				active = *req.IsActive
			}
			if err := store.Update(ctx, id.UserID, deckID, name, active); err != nil {
				handleStoreError(w, r, err)
				return
			}
			updated, err := store.Find(ctx, id.UserID, deckID)
			if err != nil {
				handleStoreError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, toDeckResponse(*updated))

		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
		}
	}
}
