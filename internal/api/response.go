package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/neexbeast/match-weather/internal/apperr"
)

// ErrorBody is the only error shape any endpoint writes. The HTTP status
// carries the outcome; the body never repeats it.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const codeInternal = "internal_error"

// WriteJSON encodes v as JSON and writes it with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindRequiredFieldMissing:
		return http.StatusBadRequest, string(kind)
	case apperr.KindNotFound:
		return http.StatusNotFound, string(kind)
	case apperr.KindDuplicateKeyRace:
		return http.StatusConflict, string(kind)
	case apperr.KindRemoteUnavailable, apperr.KindMalformedResponse:
		return http.StatusBadGateway, string(kind)
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable, string(kind)
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// WriteError logs err and writes the matching ErrorBody. Server-side
// failures get a generic message so driver details do not leak.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, code := StatusFor(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "code", code, "err", err)
		msg = http.StatusText(status)
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "code", code, "err", err)
	}

	WriteJSON(w, status, ErrorBody{Error: msg, Code: code})
}
