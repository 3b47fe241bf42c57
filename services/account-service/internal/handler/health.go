package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(r *http.Request) error

type healthHTTPHandler struct {
	startedAt time.Time
	ping      Pinger
}

func (h *healthHTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.ping != nil {
		if err := h.ping(r); err != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	}); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode health response")
	}
}
