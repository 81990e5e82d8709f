// Package api serves a read-only view of a running world over HTTP: JSON
// endpoints backed by the report.Recorder, and a live feed over SSE and
// websockets. Nothing here can change the world.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/report"
)

const (
	maxSSEConns   = 8
	catchUpEvents = 50
)

// Server serves the spectator API.
type Server struct {
	Rec       *report.Recorder
	Eng       *engine.Engine // optional; reports whether the loop runs
	Hub       *Hub           // optional; enables the live feed
	Port      int
	RateLimit int      // requests per minute per client; 0 disables
	Origins   []string // CORS origins allowed in addition to localhost
	RelayKey  string   // bearer token for the SSE stream; empty disables it

	sseConns atomic.Int32
	limiter  *RateLimiter
}

// Handler builds the routed, rate-limited, CORS-aware handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", getOnly(s.handleStatus))
	mux.HandleFunc("/api/v1/states", getOnly(s.handleStates))
	mux.HandleFunc("/api/v1/state/", getOnly(s.handleState))
	mux.HandleFunc("/api/v1/market", getOnly(s.handleMarket))
	mux.HandleFunc("/api/v1/events", getOnly(s.handleEvents))
	mux.HandleFunc("/api/v1/battles", getOnly(s.handleBattles))
	mux.HandleFunc("/api/v1/scores", getOnly(s.handleScores))
	mux.HandleFunc("/api/v1/stream", getOnly(s.handleStream))
	if s.Hub != nil {
		if s.Hub.CheckOrigin == nil {
			s.Hub.CheckOrigin = s.allowedOrigin
		}
		mux.HandleFunc("/api/v1/ws", getOnly(s.Hub.ServeWs))
	}

	var h http.Handler = mux
	if s.RateLimit > 0 {
		if s.limiter == nil {
			s.limiter = NewRateLimiter(s.RateLimit, time.Minute)
		}
		h = RateLimitMiddleware(s.limiter, h)
	}
	return s.cors(h)
}

// Start serves in a goroutine and returns the server for shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "relay_auth", s.RelayKey != "", "rate_limit", s.RateLimit)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// Close releases the rate limiter.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "read-only API", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *Server) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	switch origin {
	case "http://localhost:5173", "http://localhost:4173", "http://localhost:3000":
		return true
	}
	for _, o := range s.Origins {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// cors adds CORS headers for localhost dev servers and configured origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.allowedOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	o := s.Rec.Overview()
	spectators := 0
	if s.Hub != nil {
		spectators = s.Hub.Clients()
	}
	writeJSON(w, map[string]any{
		"name":       "granary",
		"run_id":     o.RunID,
		"seed":       o.Seed,
		"started":    o.Started,
		"year":       o.Year,
		"price":      o.Price,
		"units":      o.Units,
		"cities":     o.Cities,
		"battles":    o.Battles,
		"finished":   o.Finished,
		"running":    s.Eng != nil && s.Eng.Running(),
		"spectators": spectators,
	})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Rec.Statuses())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/state/")
	if name == "" {
		http.Error(w, "city-state name required", http.StatusBadRequest)
		return
	}
	st, ok := s.Rec.StatusOf(name)
	if !ok {
		http.Error(w, "city-state not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"status": st,
		"events": s.Rec.Events(name, limitParam(r, 20)),
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	history := s.Rec.Markets()
	if n := limitParam(r, 0); n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	writeJSON(w, history)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Rec.Events(r.URL.Query().Get("city"), limitParam(r, 50)))
}

func (s *Server) handleBattles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Rec.Battles())
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	scores := s.Rec.Scores()
	writeJSON(w, map[string]any{
		"finished": scores != nil,
		"scores":   scores,
	})
}

// limitParam reads ?limit=, accepting 1..500 and falling back to def.
func limitParam(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}

// handleStream relays the live feed as server-sent events. It requires the
// relay bearer token and caps concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey == "" || s.Hub == nil {
		http.Error(w, "streaming disabled", http.StatusForbidden)
		return
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.RelayKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if s.sseConns.Add(1) > maxSSEConns {
		s.sseConns.Add(-1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer s.sseConns.Add(-1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	c, ok := s.Hub.subscribe()
	if !ok {
		http.Error(w, "run over", http.StatusGone)
		return
	}
	defer s.Hub.unsubscribe(c)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, e := range s.Rec.Events("", catchUpEvents) {
		writeSSE(w, "event", Message{Type: "event", Run: s.Hub.RunID, Payload: e})
	}
	flusher.Flush()
	slog.Info("SSE spectator connected", "remote", r.RemoteAddr)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			var m struct {
				Type string `json:"type"`
			}
			json.Unmarshal(msg, &m)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Type, msg)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE spectator disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, kind string, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
