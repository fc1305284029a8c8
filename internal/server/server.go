// Package server is the bot's HTTP surface: the platform-bridge event
// endpoints the chat gateway posts into, the admin API, and the health
// probes. It owns request routing, authentication and payload validation;
// session semantics live in pkg/engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/blacklist"
	"github.com/pennantware/warbot/pkg/engine"
	"github.com/pennantware/warbot/pkg/feedback"
	"github.com/pennantware/warbot/pkg/guildconfig"
	"github.com/pennantware/warbot/pkg/health"
	"github.com/pennantware/warbot/pkg/session"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// BridgeSecret authenticates the platform bridge on the event
	// endpoints. Required.
	BridgeSecret string

	// Admin configures the admin API; zero value disables it.
	Admin AdminConfig
}

// Deps are the collaborators the server routes into.
type Deps struct {
	Engine    *engine.Engine
	Store     *session.Store
	Guilds    guildconfig.Store
	Blacklist blacklist.Store
	Feedback  feedback.Store
	Audit     audit.Logger
	Health    *health.Checker

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Server is the bot's HTTP front.
type Server struct {
	cfg   Config
	deps  Deps
	admin *adminAPI
	http  *http.Server
}

// New creates a server. The engine, session store and health checker are
// required; the admin API is enabled only when configured.
func New(cfg Config, deps Deps) (*Server, error) {
	if cfg.BridgeSecret == "" {
		return nil, errors.New("server: bridge secret is required")
	}
	if deps.Engine == nil || deps.Store == nil || deps.Health == nil {
		return nil, errors.New("server: engine, store and health checker are required")
	}
	if deps.Guilds == nil {
		deps.Guilds = guildconfig.NewMemory()
	}
	if deps.Blacklist == nil {
		deps.Blacklist = blacklist.NewMemory()
	}
	if deps.Feedback == nil {
		deps.Feedback = feedback.NewMemory()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	s := &Server{cfg: cfg, deps: deps}
	if cfg.Admin.Enabled() {
		admin, err := newAdminAPI(cfg.Admin, deps)
		if err != nil {
			return nil, err
		}
		s.admin = admin
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.deps.Health.LivenessHandler())
	mux.HandleFunc("GET /readyz", s.deps.Health.ReadinessHandler())

	mux.Handle("POST /v1/events/message", s.requireBridge(http.HandlerFunc(s.handleMessageEvent)))
	mux.Handle("POST /v1/events/command", s.requireBridge(http.HandlerFunc(s.handleCommandEvent)))
	mux.Handle("POST /v1/events/interaction", s.requireBridge(http.HandlerFunc(s.handleInteractionEvent)))

	if s.admin != nil {
		s.admin.register(mux)
	}
	return mux
}

// Start begins serving and blocks until the listener fails or is closed.
func (s *Server) Start() error {
	slog.Info("server: listening", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// requireBridge enforces the shared-secret bearer token on event endpoints.
func (s *Server) requireBridge(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) != s.cfg.BridgeSecret {
			writeError(w, http.StatusUnauthorized, "invalid bridge credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
