package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
	"github.com/nerrad567/pilot-core/internal/manager"
)

// switchRequest is the request body for POST /switch.
type switchRequest struct {
	Start      []string `json:"start"`
	Stop       []string `json:"stop"`
	Strictness string   `json:"strictness"`
	StartASAP  bool     `json:"start_asap"`
	TimeoutMS  int      `json:"timeout_ms"`
}

// handleSwitch stages an atomic switch request and blocks until the update
// cycle applies it. The connection is held for up to the request timeout.
func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	strictness, err := controller.ParseStrictness(req.Strictness)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond

	err = s.manager.SwitchController(req.Start, req.Stop, strictness, req.StartASAP, timeout)
	if err != nil {
		switch {
		case errors.Is(err, manager.ErrValidationRejected):
			writeConflict(w, err.Error())
		case errors.Is(err, manager.ErrSwitchInProgress):
			writeConflict(w, err.Error())
		case errors.Is(err, manager.ErrSwitchTimeout):
			writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
		default:
			writeInternalError(w, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "applied",
		"started": emptyIfNil(req.Start),
		"stopped": emptyIfNil(req.Stop),
	})
}

// handleCycleStats returns update-cycle and registry statistics.
func (s *Server) handleCycleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle":          s.manager.Cycle().Stats(),
		"registry":       s.manager.RegistryStats(),
		"switch_pending": s.manager.SwitchPending(),
	})
}

// emptyIfNil keeps JSON arrays non-null in responses.
func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
