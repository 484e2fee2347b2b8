package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/vaultport/internal/journal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

type statusResponse struct {
	Status string `json:"status"`
}

func statusBody(s string) statusResponse {
	return statusResponse{Status: s}
}

type entryDTO struct {
	Kind      string    `json:"kind"`
	Note      string    `json:"note"`
	Detail    string    `json:"detail"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toDTO(e journal.Entry) entryDTO {
	return entryDTO{
		Kind:      e.Kind,
		Note:      e.Note,
		Detail:    e.Detail,
		From:      e.From,
		To:        e.To,
		CreatedAt: e.CreatedAt,
	}
}
