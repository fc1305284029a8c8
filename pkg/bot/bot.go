// Package bot assembles the WAR calculator bot from its parts: it loads
// configuration, opens and migrates the database, builds the stores, the
// chat and calculation clients, the session engine and the HTTP server, and
// owns the start and shutdown ordering.
package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/pennantware/warbot/internal/server"
	"github.com/pennantware/warbot/pkg/audit"
	auditpg "github.com/pennantware/warbot/pkg/audit/postgres"
	"github.com/pennantware/warbot/pkg/blacklist"
	blacklistpg "github.com/pennantware/warbot/pkg/blacklist/postgres"
	"github.com/pennantware/warbot/pkg/calc"
	"github.com/pennantware/warbot/pkg/chatapi"
	"github.com/pennantware/warbot/pkg/database/migrate"
	"github.com/pennantware/warbot/pkg/engine"
	"github.com/pennantware/warbot/pkg/feedback"
	feedbackpg "github.com/pennantware/warbot/pkg/feedback/postgres"
	"github.com/pennantware/warbot/pkg/guildconfig"
	guildconfigpg "github.com/pennantware/warbot/pkg/guildconfig/postgres"
	"github.com/pennantware/warbot/pkg/health"
	"github.com/pennantware/warbot/pkg/session"
)

// dbPingTimeout bounds the startup connectivity check.
const dbPingTimeout = 5 * time.Second

// Bot is the assembled application.
type Bot struct {
	cfg    *Config
	db     *sql.DB
	store  *session.Store
	audit  audit.Logger
	health *health.Checker
	server *server.Server
}

// New builds a bot from configuration. The returned bot is not yet serving;
// call Run.
func New(ctx context.Context, cfg *Config) (*Bot, error) {
	b := &Bot{
		cfg:    cfg,
		store:  session.NewStore(),
		health: health.NewChecker(),
	}

	var (
		guilds     guildconfig.Store = guildconfig.NewMemory()
		blocklist  blacklist.Store   = blacklist.NewMemory()
		feedbacks  feedback.Store    = feedback.NewMemory()
		auditStore audit.Logger      = audit.NoopLogger{}
	)

	if cfg.Database.DSN != "" {
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		b.db = db

		if err := migrate.Run(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}

		guilds = guildconfigpg.New(db)
		blocklist = blacklistpg.New(db)
		feedbacks = feedbackpg.New(db)

		if cfg.Audit.Enabled {
			store := auditpg.New(db, auditpg.Config{RetentionDays: cfg.Audit.RetentionDays})
			store.StartRetention()
			auditStore = store
		}

		b.health.AddProbe("database", db.PingContext)
	} else {
		slog.Warn("bot: no database configured, using in-memory stores")
	}
	b.audit = auditStore

	calcClient, err := calc.NewClient(calc.Config{
		URL:       cfg.Calc.URL,
		BasicID:   cfg.Calc.BasicID,
		BasicPass: cfg.Calc.BasicPass,
		Timeout:   cfg.Calc.Timeout,
	})
	if err != nil {
		return nil, b.closeWith(err)
	}

	chatClient, err := chatapi.NewClient(chatapi.Config{
		BaseURL:  cfg.Chat.BaseURL,
		BotToken: cfg.Chat.BotToken,
		Timeout:  cfg.Chat.Timeout,
	})
	if err != nil {
		return nil, b.closeWith(err)
	}

	eng, err := engine.New(engine.Config{
		Store:       b.store,
		Adapter:     chatClient,
		Calculator:  calcClient,
		Audit:       auditStore,
		IdleTimeout: cfg.Session.IdleTimeout,
	})
	if err != nil {
		return nil, b.closeWith(err)
	}

	srv, err := server.New(server.Config{
		Addr:         cfg.Server.Address,
		BridgeSecret: cfg.Server.BridgeSecret,
		Admin: server.AdminConfig{
			Username:     cfg.Admin.Username,
			PasswordHash: cfg.Admin.PasswordHash,
			JWTSecret:    cfg.Admin.JWTSecret,
			TokenTTL:     cfg.Admin.TokenTTL,
		},
	}, server.Deps{
		Engine:    eng,
		Store:     b.store,
		Guilds:    guilds,
		Blacklist: blocklist,
		Feedback:  feedbacks,
		Audit:     auditStore,
		Health:    b.health,
	})
	if err != nil {
		return nil, b.closeWith(err)
	}
	b.server = srv

	return b, nil
}

func openDatabase(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// Run serves until ctx is cancelled, then shuts down in reverse order of
// startup: stop accepting events, drain the HTTP server, stop the session
// sweeper and audit retention, close the database.
func (b *Bot) Run(ctx context.Context) error {
	b.store.StartSweeper(b.cfg.Session.SweepInterval, b.cfg.Session.IdleTimeout)
	b.health.SetReady()

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.server.Start()
	}()

	select {
	case err := <-errCh:
		_ = b.close()
		return err
	case <-ctx.Done():
	}

	slog.Info("bot: shutting down")
	b.health.SetDraining()

	shutdownErr := b.server.Shutdown(context.Background())
	if err := b.close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	return shutdownErr
}

func (b *Bot) close() error {
	var errs []string

	if err := b.store.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if b.audit != nil {
		if err := b.audit.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("bot: shutdown errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// closeWith releases already acquired resources on a failed build and
// returns the original error.
func (b *Bot) closeWith(err error) error {
	_ = b.close()
	return err
}

// ConfigureLogging installs the process-wide slog handler.
func ConfigureLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
