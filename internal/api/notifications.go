package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-lametric/internal/bridges/lametric"
)

// handleSendNotification relays a notification to the device.
//
// The device's success object is returned as "data". Device failures do not
// fail the request: "data" is then an empty object, matching the MQTT
// notification command.
func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req lametric.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	data := s.bridge.SendNotification(r.Context(), req)
	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": requestIDFrom(r.Context()),
		"data":       data,
	})
}
