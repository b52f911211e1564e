package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// handleRefreshAll triggers every refresh loop. A loop that is already
// running reports false.
func (s *Server) handleRefreshAll(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(s.refreshers))
	for name := range s.refreshers {
		names = append(names, name)
	}
	sort.Strings(names)

	triggered := make(map[string]bool, len(names))
	for _, name := range names {
		triggered[name] = s.refreshers[name].Trigger()
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"triggered": triggered})
}

// handleRefresh triggers a single named loop.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "loop")

	loop, ok := s.refreshers[name]
	if !ok {
		writeNotFound(w, "unknown refresh loop")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"triggered": map[string]bool{name: loop.Trigger()},
	})
}
