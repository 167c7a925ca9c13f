package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperr "parkops/internal/errors"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain and transport errors onto a status code. Storage
// details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		httpErr   *apperr.HTTPError
		domainErr *apperr.Error
	)
	switch {
	case errors.As(err, &httpErr):
		writeJSON(w, httpErr.Code, errorResponse{Error: httpErr.Message})
	case errors.As(err, &domainErr):
		code := domainErr.HTTPStatus()
		msg := domainErr.Message
		if domainErr.Kind == apperr.KindStorage {
			logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
			msg = "storage temporarily unavailable"
		}
		writeJSON(w, code, errorResponse{Error: msg, Kind: string(domainErr.Kind)})
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
