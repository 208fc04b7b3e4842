package handlers

import (
	"net/http"
	"sync"
	"time"
)

var (
	startTime time.Time
	startOnce sync.Once
)

// InitStartTime records the server start time. Only the first call has an effect.
func InitStartTime() {
	startOnce.Do(func() {
		startTime = time.Now()
	})
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    int64  `json:"uptime"`
	Tools     int    `json:"tools"`
	SessionID string `json:"session_id,omitempty"`
}

// HealthHandler returns a health check handler. session may be nil.
func HealthHandler(version string, toolCount int, session func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(0)
		if !startTime.IsZero() {
			uptime = int64(time.Since(startTime).Seconds())
		}

		resp := HealthResponse{
			Status:  "ok",
			Version: version,
			Uptime:  uptime,
			Tools:   toolCount,
		}
		if session != nil {
			resp.SessionID = session()
		}
		SendJSON(w, http.StatusOK, resp)
	}
}
