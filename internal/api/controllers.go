package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pilot-core/internal/controller"
)

// controllerResponse is the JSON representation of a loaded controller.
type controllerResponse struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	State      string   `json:"state"`
	UpdateRate uint     `json:"update_rate"`
	Resources  []string `json:"resources,omitempty"`
}

// loadControllerRequest is the request body for POST /controllers.
type loadControllerRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	UpdateRate uint   `json:"update_rate,omitempty"`
}

// configureRequest is the optional request body for POST /controllers/{name}/configure.
type configureRequest struct {
	UpdateRate uint `json:"update_rate,omitempty"`
}

// toControllerResponse converts a handle to its JSON representation.
func toControllerResponse(h *controller.Handle) controllerResponse {
	return controllerResponse{
		Name:       h.Name(),
		Type:       h.Type(),
		State:      string(h.State()),
		UpdateRate: h.UpdateRate(),
		Resources:  h.Resources(),
	}
}

// handleListControllers returns all loaded controllers.
func (s *Server) handleListControllers(w http.ResponseWriter, _ *http.Request) {
	handles := s.manager.LoadedControllers()
	sort.Slice(handles, func(i, j int) bool {
		return handles[i].Name() < handles[j].Name()
	})

	controllers := make([]controllerResponse, 0, len(handles))
	for _, h := range handles {
		controllers = append(controllers, toControllerResponse(h))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"controllers": controllers,
		"count":       len(controllers),
	})
}

// handleLoadController loads a new controller from the factory.
func (s *Server) handleLoadController(w http.ResponseWriter, r *http.Request) {
	var req loadControllerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Type == "" {
		writeBadRequest(w, "name and type are required")
		return
	}

	handle, err := s.manager.LoadController(req.Name, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, controller.ErrAlreadyLoaded):
			writeConflict(w, err.Error())
		default:
			writeBadRequest(w, err.Error())
		}
		return
	}

	if req.UpdateRate > 0 {
		if err := s.manager.SetUpdateRate(req.Name, req.UpdateRate); err != nil {
			writeConflict(w, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusCreated, toControllerResponse(handle))
}

// handleGetController returns a single controller by name.
func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	handle, err := s.manager.GetController(name)
	if err != nil {
		writeNotFound(w, "controller not found: "+name)
		return
	}

	writeJSON(w, http.StatusOK, toControllerResponse(handle))
}

// handleUnloadController removes a controller from the registry.
func (s *Server) handleUnloadController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.manager.UnloadController(name); err != nil {
		switch {
		case errors.Is(err, controller.ErrNotFound):
			writeNotFound(w, "controller not found: "+name)
		case errors.Is(err, controller.ErrStillActive), errors.Is(err, controller.ErrClaimed):
			writeConflict(w, err.Error())
		default:
			writeInternalError(w, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unloaded"})
}

// handleConfigureController transitions a controller to the inactive state.
// An optional body can declare the update rate before the first configure.
func (s *Server) handleConfigureController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.UpdateRate > 0 {
		if err := s.manager.SetUpdateRate(name, req.UpdateRate); err != nil {
			switch {
			case errors.Is(err, controller.ErrNotFound):
				writeNotFound(w, "controller not found: "+name)
			default:
				writeConflict(w, err.Error())
			}
			return
		}
	}

	if err := s.manager.ConfigureController(name); err != nil {
		switch {
		case errors.Is(err, controller.ErrNotFound):
			writeNotFound(w, "controller not found: "+name)
		case errors.Is(err, controller.ErrInvalidTransition), errors.Is(err, controller.ErrClaimed):
			writeConflict(w, err.Error())
		default:
			writeInternalError(w, err.Error())
		}
		return
	}

	handle, err := s.manager.GetController(name)
	if err != nil {
		writeNotFound(w, "controller not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, toControllerResponse(handle))
}

// handleShutdownController finalizes a controller without unloading it.
func (s *Server) handleShutdownController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.manager.ShutdownController(name); err != nil {
		switch {
		case errors.Is(err, controller.ErrNotFound):
			writeNotFound(w, "controller not found: "+name)
		case errors.Is(err, controller.ErrClaimed):
			writeConflict(w, err.Error())
		default:
			writeInternalError(w, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "finalized"})
}

// handleListTypes returns the controller types the factory can instantiate.
func (s *Server) handleListTypes(w http.ResponseWriter, _ *http.Request) {
	var types []string
	if s.factory != nil {
		types = s.factory.Types()
	}
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types})
}
