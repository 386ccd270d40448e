// Package api exposes the operator HTTP surface: live tuning, the event
// journal, and a status snapshot for the front-of-house console.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/crowd-organ/gesture.host/internal/config"
	"github.com/crowd-organ/gesture.host/internal/db"
	"github.com/crowd-organ/gesture.host/internal/engine"
	"github.com/crowd-organ/gesture.host/internal/httputil"
	"github.com/crowd-organ/gesture.host/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles operator requests against the running engine.
type Server struct {
	engine *engine.Engine
	db     *db.DB

	tuningMu sync.Mutex
	tuning   *config.TuningConfig
}

// NewServer creates a Server. db may be nil when journaling is disabled;
// the events endpoint then reports 503.
func NewServer(eng *engine.Engine, journal *db.DB, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Server{
		engine: eng,
		db:     journal,
		tuning: tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routing table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/events", s.listEvents)
	mux.HandleFunc("/api/status", s.showStatus)
	return mux
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.showParams(w)
	case http.MethodPost:
		s.updateParams(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) showParams(w http.ResponseWriter) {
	s.tuningMu.Lock()
	resolved := s.tuning.Resolved()
	s.tuningMu.Unlock()
	httputil.WriteJSON(w, http.StatusOK, resolved)
}

// updateParams overlays a partial tuning document onto the running config
// and pushes it into the engine. Unknown fields are rejected so a typoed
// parameter name fails loudly instead of silently tuning nothing.
func (s *Server) updateParams(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()

	patch := config.EmptyTuningConfig()
	if err := decoder.Decode(patch); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid params body: %v", err))
		return
	}
	if err := patch.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	s.tuningMu.Lock()
	s.tuning.Overlay(patch)
	if err := s.tuning.Validate(); err != nil {
		// Cross-field checks can fail against values already set.
		s.tuningMu.Unlock()
		httputil.BadRequest(w, err.Error())
		return
	}
	s.engine.ApplyTuning(s.tuning)
	resolved := s.tuning.Resolved()
	s.tuningMu.Unlock()

	httputil.WriteJSON(w, http.StatusOK, resolved)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "event journal disabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	events, err := s.db.RecentEvents(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve events: %v", err))
		return
	}
	if events == nil {
		events = []db.EventRow{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	snapshot := s.engine.Snapshot()
	status := map[string]any{
		"voices":           snapshot.Voices,
		"room_motion":      snapshot.RoomMotion,
		"history_capacity": snapshot.HistoryCapacity,
		"last_tick_ms":     snapshot.LastTickMs,
		"last_zone_ms":     snapshot.LastZoneMs,
		"journal_enabled":  s.db != nil,
		"version":          version.Version,
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}
