package server

import (
	"encoding/json"
	"net/http"

	"github.com/sqlbridge/sqlbridge/authn"
	"github.com/sqlbridge/sqlbridge/dbhost"
	"github.com/sqlbridge/sqlbridge/httputils"
)

// commands lists every operation exposed over HTTP, one endpoint each under
// /api/db/.
var commands = []string{
	"load", "execute", "select", "batch", "sync", "close", "getConfig", "migrate", "ping",
}

// Routes registers one POST endpoint per command on mux. When secret is
// non-nil every endpoint requires a valid bearer token.
func (h *Host) Routes(mux *http.ServeMux, secret []byte) {
	for _, command := range commands {
		handler := h.commandHandler(command)
		if secret != nil {
			handler = authn.TokenRequired(secret, handler)
		}
		mux.HandleFunc("/api/db/"+command, authn.LogRequests(handler))
	}
}

func (h *Host) commandHandler(command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputils.HandleAPIResponse(w, r, nil, dbhost.WrapError(
				dbhost.KindSerialization, err, "failed to decode request body"))
			return
		}
		req.Command = command

		resp, err := h.Dispatch(&req)
		httputils.HandleAPIResponse(w, r, resp, err)
	}
}
