package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const probeTimeout = 3 * time.Second

// Health statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// Probe is one dependency checked by the readiness and health endpoints.
// A failing critical probe makes the service unready; any other failure
// only degrades it.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// sessionCounter reports how many installations hold a live session.
type sessionCounter interface {
	Len() int
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	probes   []Probe
	sessions sessionCounter
	version  string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(sessions sessionCounter, version string, probes ...Probe) *HealthHandler {
	return &HealthHandler{probes: probes, sessions: sessions, version: version}
}

// HealthResponse is the JSON response of the health endpoints.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Sessions   *int                  `json:"sessions,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: StatusOK, Timestamp: time.Now()})
}

// Ready runs the critical probes only: 200 when all pass, 503 otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status, _ := h.run(r.Context(), true)
	writeJSON(w, httpStatus(status), HealthResponse{Status: status, Timestamp: time.Now()})
}

// Health runs every probe and reports per-component latency, the version
// and the number of live sessions.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, components := h.run(r.Context(), false)

	resp := HealthResponse{
		Status:     status,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now(),
	}
	if h.sessions != nil {
		n := h.sessions.Len()
		resp.Sessions = &n
	}
	writeJSON(w, httpStatus(status), resp)
}

// run checks the probes concurrently. Probe failures are folded into the
// result; they never abort sibling probes.
func (h *HealthHandler) run(ctx context.Context, criticalOnly bool) (string, map[string]CompStatus) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var (
		mu         sync.Mutex
		components = make(map[string]CompStatus, len(h.probes))
		status     = StatusOK
	)

	var g errgroup.Group
	for _, p := range h.probes {
		if criticalOnly && !p.Critical {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			err := p.Check(ctx)
			latency := time.Since(start)

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				components[p.Name] = CompStatus{Status: StatusOK, Latency: latency.String()}
				return nil
			}
			components[p.Name] = CompStatus{Status: StatusDown, Error: err.Error()}
			switch {
			case p.Critical:
				status = StatusDown
			case status == StatusOK:
				status = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return status, components
}

func httpStatus(status string) int {
	if status == StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
