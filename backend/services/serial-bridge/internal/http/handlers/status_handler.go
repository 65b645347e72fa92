package handlers

import (
	"net/http"

	"cardbridge/backend/services/serial-bridge/internal/bridge"
)

// StatusSource reports bridge state.
type StatusSource interface {
	Status() bridge.Status
}

// ConsoleCounter reports how many operator consoles are attached.
type ConsoleCounter interface {
	Count() int
}

type statusResponse struct {
	bridge.Status
	Consoles int `json:"consoles"`
}

// NewStatusHandler handles GET /api/status.
func NewStatusHandler(src StatusSource, consoles ConsoleCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Status: src.Status()}
		if consoles != nil {
			resp.Consoles = consoles.Count()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
