package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// SetPointRequest is the body of PUT /points/{address}.
type SetPointRequest struct {
	Value json.RawMessage `json:"val"`
}

// handleListPoints returns every point, optionally filtered by ?prefix=.
func (s *Server) handleListPoints(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	var list []points.Point
	if prefix == "" {
		list = s.registry.List()
	} else {
		matched := s.registry.QueryAll(prefix)
		list = make([]points.Point, 0, len(matched))
		for _, p := range matched {
			list = append(list, p)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Address < list[j].Address })
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"points": list,
		"count":  len(list),
	})
}

// handleGetPoint returns a single point.
func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	p, err := s.registry.Get(address)
	if err != nil {
		writeNotFound(w, "point not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSetPoint records a user write. The command dispatcher forwards it
// to the device asynchronously, so the response is 202 with the pending point.
func (s *Server) handleSetPoint(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	var req SetPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Value) == 0 {
		writeBadRequest(w, "val is required")
		return
	}

	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		writeBadRequest(w, "invalid val")
		return
	}

	if err := s.registry.Submit(r.Context(), address, value); err != nil {
		switch {
		case errors.Is(err, points.ErrPointNotFound):
			writeNotFound(w, "point not found")
		case errors.Is(err, points.ErrPointReadOnly):
			writeError(w, http.StatusForbidden, ErrCodeForbidden, "point is read-only")
		case errors.Is(err, points.ErrInvalidValue):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("point write failed", "address", address, "error", err)
			writeInternalError(w, "failed to write point")
		}
		return
	}

	p, err := s.registry.Get(address)
	if err != nil {
		writeNotFound(w, "point not found")
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}
