package search

import (
	"encoding/json"
	"net/http"

	"github.com/snapsearch/snap-search/internal/pkg/security"
	"github.com/snapsearch/snap-search/internal/query"
)

// Handler provides HTTP handlers for search operations.
type Handler struct {
	svc *Service
}

// NewHandler creates a new search handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// HandleSearch handles POST /v1/search
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req.Query = security.SanitizeQuery(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleParse handles POST /v1/search/parse — returns the structured
// interpretation without running the search. Useful for debugging queries.
func (h *Handler) HandleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.svc.parser.Parse(security.SanitizeQuery(req.Query)))
}

// HandleExamples handles GET /v1/search/examples
func (h *Handler) HandleExamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{
		"examples": query.ExampleQueries(),
	})
}
