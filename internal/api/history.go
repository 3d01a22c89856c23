package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/pilot-core/internal/history"
)

// handleListTransitions returns persisted lifecycle transitions, newest first.
//
// Query parameters: controller, to, limit, offset.
func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history persistence is not configured")
		return
	}

	q := r.URL.Query()
	filter := history.TransitionFilter{
		Controller: q.Get("controller"),
		To:         q.Get("to"),
		Limit:      queryInt(q.Get("limit")),
		Offset:     queryInt(q.Get("offset")),
	}

	list, err := s.history.ListTransitions(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing transitions", "error", err)
		writeInternalError(w, "failed to query transition history")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// handleListSwitches returns persisted switch records, newest first.
//
// Query parameters: strictness, limit, offset.
func (s *Server) handleListSwitches(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history persistence is not configured")
		return
	}

	q := r.URL.Query()
	filter := history.SwitchFilter{
		Strictness: q.Get("strictness"),
		Limit:      queryInt(q.Get("limit")),
		Offset:     queryInt(q.Get("offset")),
	}

	list, err := s.history.ListSwitches(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing switches", "error", err)
		writeInternalError(w, "failed to query switch history")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// queryInt parses a query parameter as a non-negative integer.
// Missing or malformed values map to zero, which selects the defaults.
func queryInt(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
