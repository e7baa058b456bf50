package handlers

import (
	"errors"
	"net/http"
)

var errRealtimeDisabled = errors.New("realtime is not enabled")

// Subscribe upgrades the connection to a websocket that streams board and
// form events. Clients pick topics with subscribe messages.
func (a *API) Subscribe(w http.ResponseWriter, r *http.Request) {
	if a.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errRealtimeDisabled.Error(), Code: "realtime_disabled"})
		return
	}
	ident := caller(r)
	a.hub.ServeWS(w, r, ident.UserID, ident.WorkspaceID)
}
