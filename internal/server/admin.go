package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/blacklist"
	"github.com/pennantware/warbot/pkg/feedback"
)

// defaultTokenTTL is the admin token lifetime when none is configured.
const defaultTokenTTL = time.Hour

// AdminConfig configures the admin API. All three credentials fields must be
// set for the API to be enabled.
type AdminConfig struct {
	// Username is the admin login name.
	Username string

	// PasswordHash is the bcrypt hash of the admin password. Plaintext
	// passwords are never configured.
	PasswordHash string

	// JWTSecret signs the session tokens issued by login.
	JWTSecret string

	// TokenTTL bounds issued tokens; defaultTokenTTL when zero.
	TokenTTL time.Duration
}

// Enabled reports whether the admin API is fully configured.
func (c AdminConfig) Enabled() bool {
	return c.Username != "" && c.PasswordHash != "" && c.JWTSecret != ""
}

// adminAPI serves the operator endpoints behind bcrypt-checked login and
// short-lived HMAC JWTs.
type adminAPI struct {
	cfg  AdminConfig
	deps Deps
}

func newAdminAPI(cfg AdminConfig, deps Deps) (*adminAPI, error) {
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, fmt.Errorf("server: admin password hash is not bcrypt: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &adminAPI{cfg: cfg, deps: deps}, nil
}

func (a *adminAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/login", a.handleLogin)

	mux.Handle("GET /admin/status", a.requireToken(http.HandlerFunc(a.handleStatus)))
	mux.Handle("GET /admin/blacklist", a.requireToken(http.HandlerFunc(a.handleBlacklistList)))
	mux.Handle("POST /admin/blacklist", a.requireToken(http.HandlerFunc(a.handleBlacklistAdd)))
	mux.Handle("DELETE /admin/blacklist/{userID}", a.requireToken(http.HandlerFunc(a.handleBlacklistRemove)))
	mux.Handle("GET /admin/feedback", a.requireToken(http.HandlerFunc(a.handleFeedbackList)))
	mux.Handle("GET /admin/audit", a.requireToken(http.HandlerFunc(a.handleAuditQuery)))
	mux.Handle("PUT /admin/guilds/{guildID}/config", a.requireToken(http.HandlerFunc(a.handleGuildConfigSet)))
	mux.Handle("GET /admin/guilds/{guildID}/config", a.requireToken(http.HandlerFunc(a.handleGuildConfigGet)))
}

func (a *adminAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}

	if req.Username != a.cfg.Username ||
		bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(req.Password)) != nil {
		slog.Warn("server: admin login rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := a.deps.Clock()
	expiresAt := now.Add(a.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issuing token failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// requireToken verifies the HMAC JWT issued by login.
func (a *adminAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(a.deps.Clock))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *adminAPI) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":         a.deps.Health.State(),
		"live_sessions": a.deps.Store.Len(),
	})
}

func (a *adminAPI) handleBlacklistList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.deps.Blacklist.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing blacklist failed")
		return
	}
	if entries == nil {
		entries = []blacklist.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *adminAPI) handleBlacklistAdd(w http.ResponseWriter, r *http.Request) {
	var entry blacklist.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	entry.CreatedAt = a.deps.Clock()

	if err := a.deps.Blacklist.Add(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "adding blacklist entry failed")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *adminAPI) handleBlacklistRemove(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if err := a.deps.Blacklist.Remove(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "removing blacklist entry failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *adminAPI) handleFeedbackList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.deps.Feedback.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing feedback failed")
		return
	}
	if entries == nil {
		entries = []feedback.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *adminAPI) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	events, err := a.deps.Audit.Query(r.Context(), audit.QueryFilter{
		GuildID: q.Get("guild_id"),
		UserID:  q.Get("user_id"),
		Action:  audit.Action(q.Get("action")),
		Limit:   limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "querying audit events failed")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *adminAPI) handleGuildConfigSet(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("guildID")

	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	var err error
	if req.Value == "" {
		err = a.deps.Guilds.Unset(r.Context(), guildID, req.Key)
	} else {
		err = a.deps.Guilds.Set(r.Context(), guildID, req.Key, req.Value)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "updating guild config failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *adminAPI) handleGuildConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.deps.Guilds.Get(r.Context(), r.PathValue("guildID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading guild config failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel_mode":     string(cfg.ChannelMode),
		"allowed_channels": cfg.AllowedChannels,
		"notify_role_id":   cfg.NotifyRoleID,
	})
}
