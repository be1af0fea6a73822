package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/afes-website/manage-back/internal/festival"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, ErrorCode: code})
}

// writeFailure maps err onto a response. Domain rejections become 400, or
// 404 when they match one of notFound; anything else is logged and hidden
// behind a 500.
func writeFailure(w http.ResponseWriter, logger *slog.Logger, err error, notFound ...error) {
	var de *festival.Error
	if !errors.As(err, &de) {
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	status := http.StatusBadRequest
	for _, nf := range notFound {
		if errors.Is(err, nf) {
			status = http.StatusNotFound
			break
		}
	}
	writeError(w, status, de.Code, de.Error())
}
