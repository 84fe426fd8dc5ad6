package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/tool"
)

const (
	healthOK           = "ok"
	healthNotReady     = "not ready"
	healthShuttingDown = "shutting down"
	healthMissing      = "missing"
)

// HealthChecker serves /healthz, /readyz and /healthz/detailed. The detailed
// view reports what the assistant is holding: stored sessions by status,
// sessions waiting for a human, the reviewed tools and learned preferences.
type HealthChecker struct {
	ready   atomic.Bool
	sc      *ServerContext
	started time.Time
	now     func() time.Time
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, started: time.Now(), now: time.Now}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, e.g. while draining on shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status          string               `json:"status"`
	Uptime          string               `json:"uptime"`
	Sessions        int                  `json:"sessions"`
	AwaitingReview  int                  `json:"awaiting_review"`
	SessionStatus   map[agent.Status]int `json:"session_status,omitempty"`
	SessionTTL      string               `json:"session_ttl,omitempty"`
	Tools           int                  `json:"tools"`
	ReviewedTools   []string             `json:"reviewed_tools,omitempty"`
	CalendarBackend string               `json:"calendar_backend,omitempty"`
	Preferences     int                  `json:"preferences"`
}

// checks runs the readiness checks. The assistant check only applies when
// the checker has a server context.
func (h *HealthChecker) checks() (map[string]string, string) {
	checks := map[string]string{"ready": healthOK, "shutdown": healthOK}
	status := healthOK

	if !h.ready.Load() {
		checks["ready"] = healthNotReady
		status = healthNotReady
	}
	if h.sc != nil {
		if h.sc.IsShutdown() {
			checks["shutdown"] = healthShuttingDown
			if status == healthOK {
				status = healthShuttingDown
			}
		}
		if h.sc.Assistant() == nil {
			checks["assistant"] = healthMissing
			status = healthNotReady
		} else {
			checks["assistant"] = healthOK
		}
	}
	return checks, status
}

// LivenessHandler answers ok while the process can serve HTTP at all.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthOK})
	})
}

// ReadinessHandler answers 503 while not ready, shutting down or without an
// assistant.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, status := h.checks()
		code := http.StatusOK
		if status != healthOK {
			code = http.StatusServiceUnavailable
			status = healthNotReady
		}
		writeHealth(w, code, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler reports the assistant state next to the readiness
// status.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, status := h.checks()
		report := h.report(r)
		report.Status = status

		code := http.StatusOK
		if status != healthOK {
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, report)
	})
}

func (h *HealthChecker) report(r *http.Request) DetailedHealthResponse {
	report := DetailedHealthResponse{
		Uptime: h.now().Sub(h.started).Truncate(time.Second).String(),
	}
	if h.sc == nil {
		return report
	}

	if store := h.sc.Sessions(); store != nil {
		report.SessionTTL = store.TTL().String()
		for _, sum := range store.List() {
			if report.SessionStatus == nil {
				report.SessionStatus = make(map[agent.Status]int)
			}
			report.Sessions++
			report.SessionStatus[sum.Status]++
			if sum.PendingKind != "" {
				report.AwaitingReview++
			}
		}
	}

	a := h.sc.Assistant()
	if a == nil {
		return report
	}
	for _, t := range a.Registry().List() {
		report.Tools++
		if t.Policy == tool.PolicyReview {
			report.ReviewedTools = append(report.ReviewedTools, t.Name)
		}
	}
	sort.Strings(report.ReviewedTools)
	report.CalendarBackend = a.Config().Calendar.Backend
	if prefs := a.Preferences(); prefs != nil {
		if entries, err := prefs.List(r.Context()); err == nil {
			report.Preferences = len(entries)
		}
	}
	return report
}

// RegisterHealthEndpoints mounts the three health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

func writeHealth(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
