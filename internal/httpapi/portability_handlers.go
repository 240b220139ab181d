package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"deckledger.org/internal/archive"
	"deckledger.org/internal/obs"
	"deckledger.org/internal/tracker"
)

type importResponse struct {
	Imported importedCounts `json:"imported"`
	Purged   bool           `json:"purged"`
}

type importedCounts struct {
	Decks         int `json:"decks"`
	OpponentDecks int `json:"opponent_decks"`
	Results       int `json:"results"`
}

// handleExport streams the caller's full dataset as a zip attachment.
func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	decks, err := a.store.Decks(ctx).List(ctx, id.UserID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	opps, err := a.store.OpponentDecks(ctx).List(ctx, id.UserID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	results, err := a.store.Results(ctx).List(ctx, id.UserID, tracker.ResultFilter{
		SortKey: "date",
		Limit:   tracker.NoLimit,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}

	data, err := a.codec.Export(decks, opps, results)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}

	obs.CountExport()
	a.audit(ctx, "portability.export", map[string]any{
		"decks":          len(decks),
		"opponent_decks": len(opps),
		"results":        len(results),
	})

	filename := "deckledger-" + time.Now().UTC().Format("20060102") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport merges an uploaded archive into the caller's collections.
// With ?purge=1 the existing rows are replaced wholesale. Either the whole
// archive lands or nothing does; the client sees a single failure message.
func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	body, err := readArchiveUpload(w, r, a.maxImportBytes)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	parsed, err := a.codec.Import(body)
	if err != nil {
		obs.CountImport("error")
		if errors.Is(err, archive.ErrInvalidArchive) {
			writeError(w, r, http.StatusBadRequest, "uploaded file is not a valid archive")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "import failed; no changes were applied")
		return
	}

	purge := purgeRequested(r)
	counts, err := a.engine.Apply(ctx, id, parsed, purge)
	if err != nil {
		obs.CountImport("error")
		writeError(w, r, http.StatusInternalServerError, "import failed; no changes were applied")
		return
	}

	obs.CountImport("ok")
	obs.CountImportedRows("decks", counts.Decks)
	obs.CountImportedRows("opponent_decks", counts.OpponentDecks)
	obs.CountImportedRows("results", counts.Results)
	a.audit(ctx, "portability.import", map[string]any{
		"purge":          purge,
		"decks":          counts.Decks,
		"opponent_decks": counts.OpponentDecks,
		"results":        counts.Results,
	})

	writeJSON(w, http.StatusOK, importResponse{
		Imported: importedCounts{
			Decks:         counts.Decks,
			OpponentDecks: counts.OpponentDecks,
			Results:       counts.Results,
		},
		Purged: purge,
	})
}

// readArchiveUpload accepts the archive either as the raw request body or as
// the "archive" part of a multipart form (browser file input).
func readArchiveUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		f, _, err := r.FormFile("archive")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}

func purgeRequested(r *http.Request) bool {
	switch r.URL.Query().Get("purge") {
	case "1", "true", "yes":
		return true
	}
	return false
}
