package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"example.com/smartfit/internal/suggestions"
)

const maxSuggestions = 50

// SuggestionsResponse lists suggestions and where they came from.
type SuggestionsResponse struct {
	Items  []suggestions.Suggestion `json:"items"`
	Source string                   `json:"source"`
}

func (h *Handler) listSuggestions(w http.ResponseWriter, r *http.Request) {
	limit := suggestions.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit: must be a positive integer")
			return
		}
		limit = min(parsed, maxSuggestions)
	}

	items, source := h.suggestions.Suggestions(r.Context(), limit)
	writeJSON(w, http.StatusOK, SuggestionsResponse{Items: items, Source: string(source)})
}

func (h *Handler) getSuggestion(w http.ResponseWriter, r *http.Request) {
	found, ok := h.suggestions.Lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "suggestion not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}
