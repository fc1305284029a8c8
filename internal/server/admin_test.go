package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/blacklist"
	"github.com/pennantware/warbot/pkg/engine"
	"github.com/pennantware/warbot/pkg/feedback"
	"github.com/pennantware/warbot/pkg/guildconfig"
	"github.com/pennantware/warbot/pkg/health"
	"github.com/pennantware/warbot/pkg/questionnaire"
	"github.com/pennantware/warbot/pkg/session"
)

const (
	adminUser     = "operator"
	adminPassword = "correct horse"
)

type adminFixture struct {
	server    *Server
	ts        *httptest.Server
	store     *session.Store
	blacklist *blacklist.Memory
	feedback  *feedback.Memory
	guilds    *guildconfig.Memory

	// now is mutable so tests can advance past token expiry.
	now time.Time
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	f := &adminFixture{
		store:     session.NewStore(),
		blacklist: blacklist.NewMemory(),
		feedback:  feedback.NewMemory(),
		guilds:    guildconfig.NewMemory(),
		now:       testNow,
	}

	eng, err := engine.New(engine.Config{
		Store:      f.store,
		Adapter:    &fakeAdapter{},
		Calculator: fakeCalc{},
	})
	require.NoError(t, err)

	checker := health.NewChecker()
	checker.SetReady()

	srv, err := New(Config{
		BridgeSecret: bridgeSecret,
		Admin: AdminConfig{
			Username:     adminUser,
			PasswordHash: string(hash),
			JWTSecret:    "jwt-secret",
			TokenTTL:     time.Hour,
		},
	}, Deps{
		Engine:    eng,
		Store:     f.store,
		Guilds:    f.guilds,
		Blacklist: f.blacklist,
		Feedback:  f.feedback,
		Audit:     audit.NoopLogger{},
		Health:    checker,
		Clock:     func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.server = srv

	f.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(f.ts.Close)
	return f
}

func (f *adminFixture) request(t *testing.T, method, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.ts.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (f *adminFixture) login(t *testing.T) string {
	t.Helper()

	resp, body := f.request(t, http.MethodPost, "/admin/login", "", map[string]string{
		"username": adminUser,
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAdminLogin(t *testing.T) {
	f := newAdminFixture(t)

	resp, body := f.request(t, http.MethodPost, "/admin/login", "", map[string]string{
		"username": adminUser,
		"password": adminPassword,
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["expires_at"])
}

func TestAdminLogin_BadCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", adminUser, "incorrect"},
		{"wrong username", "someone", adminPassword},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture(t)
			resp, _ := f.request(t, http.MethodPost, "/admin/login", "", map[string]string{
				"username": tt.username,
				"password": tt.password,
			})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAdmin_RequiresToken(t *testing.T) {
	f := newAdminFixture(t)

	resp, _ := f.request(t, http.MethodGet, "/admin/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.request(t, http.MethodGet, "/admin/status", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_TokenExpiry(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	resp, _ := f.request(t, http.MethodGet, "/admin/status", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.now = f.now.Add(2 * time.Hour)
	resp, _ = f.request(t, http.MethodGet, "/admin/status", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_DisabledWhenUnconfigured(t *testing.T) {
	f := newServerFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/admin/login",
		bytes.NewReader([]byte(`{"username":"x","password":"y"}`)))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminStatus(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	f.store.Put(session.New("thread-1", "user-1", "guild-1", questionnaire.KindPitcher, 1000, "N", testNow))

	resp, body := f.request(t, http.MethodGet, "/admin/status", token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["state"])
	assert.Equal(t, float64(1), body["live_sessions"])
}

func TestAdminBlacklist(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	resp, _ := f.request(t, http.MethodPost, "/admin/blacklist", token, map[string]string{
		"user_id": "spammer-1",
		"reason":  "flooding sessions",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := f.request(t, http.MethodGet, "/admin/blacklist", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	entries, _ := body["entries"].([]any)
	require.Len(t, entries, 1)

	listed, err := f.blacklist.Contains(context.Background(), "spammer-1")
	require.NoError(t, err)
	assert.True(t, listed)

	resp, _ = f.request(t, http.MethodDelete, "/admin/blacklist/spammer-1", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	listed, err = f.blacklist.Contains(context.Background(), "spammer-1")
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestAdminBlacklist_MissingUserID(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	resp, _ := f.request(t, http.MethodPost, "/admin/blacklist", token, map[string]string{
		"reason": "no user",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminFeedback(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.feedback.Add(context.Background(), feedback.Entry{
			UserID:  fmt.Sprintf("user-%d", i),
			Content: fmt.Sprintf("feedback %d", i),
		}))
	}

	resp, body := f.request(t, http.MethodGet, "/admin/feedback?limit=2", token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	entries, _ := body["entries"].([]any)
	assert.Len(t, entries, 2)
}

func TestAdminAudit(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	resp, body := f.request(t, http.MethodGet, "/admin/audit?guild_id=guild-1&limit=10", token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	events, ok := body["events"].([]any)
	require.True(t, ok, "events must be an array even when empty")
	assert.Empty(t, events)
}

func TestAdminGuildConfig(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	resp, _ := f.request(t, http.MethodPut, "/admin/guilds/guild-1/config", token, map[string]string{
		"key":   guildconfig.KeyChannelMode,
		"value": string(guildconfig.ModeRestricted),
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := f.request(t, http.MethodGet, "/admin/guilds/guild-1/config", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(guildconfig.ModeRestricted), body["channel_mode"])

	// Empty value clears the key back to the default.
	resp, _ = f.request(t, http.MethodPut, "/admin/guilds/guild-1/config", token, map[string]string{
		"key": guildconfig.KeyChannelMode,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = f.request(t, http.MethodGet, "/admin/guilds/guild-1/config", token, nil)
	assert.Equal(t, string(guildconfig.ModeAllowAll), body["channel_mode"])
}

func TestAdminGuildConfig_MissingKey(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	resp, _ := f.request(t, http.MethodPut, "/admin/guilds/guild-1/config", token,
		map[string]string{"value": "orphan"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
