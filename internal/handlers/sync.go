package handlers

import (
	"fmt"
	"net/http"

	"postdeck/internal/apperr"
	"postdeck/internal/outbox"
)

// syncSummary is the body of GET /sync.
type syncSummary struct {
	Pending int             `json:"pending"`
	Failed  []outbox.Record `json:"failed"`
}

// SyncSummary reports how many board edits are still being persisted and
// which ones were rolled back.
func (a *API) SyncSummary(w http.ResponseWriter, r *http.Request) {
	failed := a.sync.Failed()
	if failed == nil {
		failed = []outbox.Record{}
	}
	writeJSON(w, http.StatusOK, syncSummary{Pending: a.sync.Pending(), Failed: failed})
}

// SyncStatus returns the state of one persistence command. Finished
// commands are forgotten after a while and then answer 404.
func (a *API) SyncStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "commandID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, ok := a.sync.Status(id)
	if !ok {
		writeError(w, r, fmt.Errorf("command %s: %w", id, apperr.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
