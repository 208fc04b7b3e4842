package handlers

import (
	"context"
	"net/http"
	"strings"

	"hostpilot/internal/orchestrator"
	"hostpilot/internal/storage"
)

// CommandRunner runs one natural-language command to a terminal status.
type CommandRunner interface {
	Handle(ctx context.Context, text string) orchestrator.Response
}

// CommandHistory lists audited commands.
type CommandHistory interface {
	ListCommands(ctx context.Context, sessionID string, limit int) ([]storage.CommandRecord, error)
}

// CommandRequest is the body of POST /api/v1/commands.
type CommandRequest struct {
	Text string `json:"text"`
}

// CommandsResponse is the body of GET /api/v1/commands.
type CommandsResponse struct {
	Commands []storage.CommandRecord `json:"commands"`
	Count    int                     `json:"count"`
}

// CommandHandler runs the posted command. The command's own outcome, including refused
// and blocked, is reported in the body with 200; only malformed requests get 4xx.
func CommandHandler(runner CommandRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommandRequest
		if err := DecodeJSON(r, &req); err != nil {
			SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "text is required")
			return
		}

		SendJSON(w, http.StatusOK, runner.Handle(r.Context(), req.Text))
	}
}

// CommandHistoryHandler lists recorded commands, newest first.
// Query: session_id (optional), limit (optional).
func CommandHistoryHandler(history CommandHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			SendError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "command history is not enabled")
			return
		}
		limit, err := queryLimit(r)
		if err != nil {
			SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}

		list, err := history.ListCommands(r.Context(), r.URL.Query().Get("session_id"), limit)
		if err != nil {
			SendError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list commands")
			return
		}
		if list == nil {
			list = []storage.CommandRecord{}
		}
		SendJSON(w, http.StatusOK, CommandsResponse{Commands: list, Count: len(list)})
	}
}
