package httputils

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/sqlbridge/sqlbridge/dbhost"
)

// HandleAPIResponse writes resp as JSON, or an error body carrying both the
// display message and the taxonomy kind so callers can match on it.
func HandleAPIResponse(w http.ResponseWriter, r *http.Request, resp interface{}, err error) {
	if err != nil {
		kind := dbhost.KindOf(err)
		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.URL.Path,
			"kind":   kind,
		}).WithError(err).Warn("request failed")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(StatusForKind(kind))
		json.NewEncoder(w).Encode(map[string]string{
			"error":     err.Error(),
			"errorKind": string(kind),
		})
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("failed to marshal response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// StatusForKind maps a taxonomy kind to an HTTP status code.
func StatusForKind(kind dbhost.ErrorKind) int {
	switch kind {
	case dbhost.KindInvalidDBURL, dbhost.KindUnsupportedDatatype, dbhost.KindSerialization:
		return http.StatusBadRequest
	case dbhost.KindNotLoaded:
		return http.StatusNotFound
	case dbhost.KindNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
