package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/report"
	"github.com/muurk/btscan/internal/session"
)

// scanResponse is the body of every /api/scan endpoint.
type scanResponse struct {
	report.Snapshot
	Stats stats `json:"stats"`
}

type stats struct {
	Received   uint64 `json:"received"`
	Accepted   uint64 `json:"accepted"`
	Duplicates uint64 `json:"duplicates"`
	Discarded  uint64 `json:"discarded"`
	Scans      uint64 `json:"scans"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the API routes:
//
//	GET  /api/scan         current state, devices and counters
//	POST /api/scan/start   request a scan
//	POST /api/scan/stop    stop the running scan
//	POST /api/scan/toggle  start when idle, stop when scanning
//	GET  /ws               event stream
//	GET  /healthz          liveness
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no route for " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: r.Method + " not allowed on " + r.URL.Path})
	})

	r.Route("/api/scan", func(r chi.Router) {
		r.Use(requestLogger)
		r.Get("/", s.handleGetScan)
		r.Post("/start", s.control(s.ctrl.Start, "start"))
		r.Post("/stop", s.control(s.ctrl.Stop, "stop"))
		r.Post("/toggle", s.control(s.ctrl.Toggle, "toggle"))
	})

	// Not behind requestLogger: the upgrade needs the raw ResponseWriter.
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// requestLogger logs each API request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logging.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// recoverer turns a handler panic into a 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.Error("Panic in HTTP handler",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleGetScan(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scanResponse())
}

// control wraps a Control call. The controller processes it asynchronously,
// so the response carries the state at the time of the request and 202.
func (s *Server) control(action func(), name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logging.Debug("API control request",
			zap.String("action", name),
			zap.String("remote_addr", r.RemoteAddr),
		)
		action()
		writeJSON(w, http.StatusAccepted, s.scanResponse())
	}
}

func (s *Server) scanResponse() scanResponse {
	return scanResponse{
		Snapshot: report.NewSnapshot(s.ctrl.State(), s.ctrl.Snapshot()),
		Stats:    newStats(s.ctrl.Stats()),
	}
}

func newStats(st session.Stats) stats {
	return stats{
		Received:   st.Received,
		Accepted:   st.Accepted,
		Duplicates: st.Duplicates,
		Discarded:  st.Discarded,
		Scans:      st.Scans,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response", zap.Error(err))
	}
}
