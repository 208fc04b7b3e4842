package handlers

import (
	"context"
	"net/http"

	"hostpilot/internal/storage"
)

// FactsLister lists stored facts.
type FactsLister interface {
	ListFacts(ctx context.Context, sessionID string, limit int) ([]storage.FactRecord, error)
}

// FactsResponse is the body of GET /api/v1/facts.
type FactsResponse struct {
	Facts []storage.FactRecord `json:"facts"`
	Count int                  `json:"count"`
}

// FactsHandler lists stored facts, newest first.
// Query: session_id (optional), limit (optional).
func FactsHandler(lister FactsLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			SendError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "facts storage is not enabled")
			return
		}
		limit, err := queryLimit(r)
		if err != nil {
			SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}

		list, err := lister.ListFacts(r.Context(), r.URL.Query().Get("session_id"), limit)
		if err != nil {
			SendError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list facts")
			return
		}
		if list == nil {
			list = []storage.FactRecord{}
		}
		SendJSON(w, http.StatusOK, FactsResponse{Facts: list, Count: len(list)})
	}
}
