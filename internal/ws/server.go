package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/callpulse/hub/internal/config"
	"github.com/callpulse/hub/internal/hub"
	"github.com/callpulse/hub/internal/metrics"
	"github.com/callpulse/hub/internal/session"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	maxMessageBytes = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// IDFunc assigns the display label of a new agent session.
type IDFunc func() string

// TimestampIDs labels agents "agent-<n>" where n is the epoch millisecond
// modulo 100000. Labels can collide; they identify a stream for humans, not
// for the hub.
func TimestampIDs(clock clockwork.Clock) IDFunc {
	return func() string {
		return fmt.Sprintf("agent-%d", clock.Now().UnixMilli()%100000)
	}
}

type Server struct {
	config         *config.Config
	registry       *hub.Registry
	relay          *hub.Relay
	agents         *session.Store
	clock          clockwork.Clock
	newAgentID     IDFunc
	limiter        *ConnectionRateLimiter
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
	startedAt      time.Time
}

func NewServer(cfg *config.Config, registry *hub.Registry, relay *hub.Relay, agents *session.Store, clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Server{
		config:         cfg,
		registry:       registry,
		relay:          relay,
		agents:         agents,
		clock:          clock,
		newAgentID:     TimestampIDs(clock),
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      cfg.Server.AuthToken,
		startedAt:      clock.Now(),
	}

	if cfg.Limits.ConnectionsPerSecond > 0 {
		s.limiter = NewConnectionRateLimiter(clock, cfg.Limits.ConnectionsPerSecond, cfg.Limits.ConnectionBurst)
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

// SetAgentIDs replaces the agent label generator. Must be called before
// SetupRoutes.
func (s *Server) SetAgentIDs(f IDFunc) {
	s.newAgentID = f
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/agent", s.handleAgent)
	mux.HandleFunc("/ws/supervisor", s.handleSupervisor)
	mux.Handle("/api/agents", securityHeaders(http.HandlerFunc(s.handleAgents)))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request, endpoint string) (*websocket.Conn, bool) {
	if !s.authorize(r) {
		metrics.ConnectionsRejectedTotal.WithLabelValues(endpoint, "unauthorized").Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	if s.limiter != nil && !s.limiter.Allow(clientIP(r)) {
		metrics.ConnectionsRejectedTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return nil, false
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.ConnectionsRejectedTotal.WithLabelValues(endpoint, "upgrade").Inc()
		slog.Warn("ws upgrade error", "endpoint", endpoint, "error", err)
		return nil, false
	}
	conn.SetReadLimit(maxMessageBytes)
	return conn, true
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.upgrade(w, r, "agent")
	if !ok {
		return
	}

	a := NewAgentSession(s.newAgentID(), conn, s.relay, s.agents, s.clock)
	a.remoteAddr = r.RemoteAddr

	go func() {
		defer conn.Close()
		a.Run(context.Background())
	}()
}

func (s *Server) handleSupervisor(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.upgrade(w, r, "supervisor")
	if !ok {
		return
	}

	sup := NewSupervisorSession(conn, s.registry)
	slog.Info("Supervisor connected", "supervisor_id", sup.ID(), "remote_addr", r.RemoteAddr)

	go func() {
		sup.Run()
		slog.Info("Supervisor disconnected", "supervisor_id", sup.ID(), "remote_addr", r.RemoteAddr)
	}()
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.agents.GetAll())
}

type healthResponse struct {
	Status        string  `json:"status"`
	Supervisors   int     `json:"supervisors"`
	Agents        int     `json:"agents"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	RSSBytes      uint64  `json:"rssBytes,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Supervisors:   s.registry.Count(),
		Agents:        s.agents.Count(),
		UptimeSeconds: s.clock.Since(s.startedAt).Seconds(),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			resp.RSSBytes = mem.RSS
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Callpulse-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// the listener down gracefully. A bind failure is returned immediately.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
