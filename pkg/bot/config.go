package bot

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pennantware/warbot/pkg/engine"
	"github.com/pennantware/warbot/pkg/session"
)

// Config holds the complete bot configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Calc     CalcConfig     `yaml:"calc"`
	Chat     ChatConfig     `yaml:"chat"`
	Session  SessionConfig  `yaml:"session"`
	Audit    AuditConfig    `yaml:"audit"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address string `yaml:"address"`

	// BridgeSecret authenticates the platform bridge on the event
	// endpoints. Required.
	BridgeSecret string `yaml:"bridge_secret"`
}

// AdminConfig configures the operator API; leave empty to disable it.
type AdminConfig struct {
	Username string `yaml:"username"`

	// PasswordHash is the bcrypt hash of the admin password.
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// DatabaseConfig configures the Postgres connection. An empty DSN runs the
// bot on in-memory stores: sessions are ephemeral anyway, but guild config,
// blacklist, feedback and the audit trail then vanish on restart.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// CalcConfig configures the WAR calculation backend client.
type CalcConfig struct {
	URL       string        `yaml:"url"`
	BasicID   string        `yaml:"basic_id"`
	BasicPass string        `yaml:"basic_pass"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ChatConfig configures the chat platform REST client.
type ChatConfig struct {
	BaseURL  string        `yaml:"base_url"`
	BotToken string        `yaml:"bot_token"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SessionConfig configures session lifecycle timing.
type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AuditConfig configures the durable audit trail.
type AuditConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text"
}

// LoadConfig loads configuration from a file.
// The path comes from command line arguments, controlled by the operator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables so secrets stay out of the file.
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = engine.DefaultIdleTimeout
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = session.DefaultSweepInterval
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks that the configuration can produce a working bot.
func (c *Config) Validate() error {
	if c.Server.BridgeSecret == "" {
		return errors.New("config: server.bridge_secret is required")
	}
	if c.Calc.URL == "" {
		return errors.New("config: calc.url is required")
	}
	if c.Chat.BaseURL == "" {
		return errors.New("config: chat.base_url is required")
	}
	if c.Chat.BotToken == "" {
		return errors.New("config: chat.bot_token is required")
	}

	admin := c.Admin
	partial := admin.Username != "" || admin.PasswordHash != "" || admin.JWTSecret != ""
	complete := admin.Username != "" && admin.PasswordHash != "" && admin.JWTSecret != ""
	if partial && !complete {
		return errors.New("config: admin requires username, password_hash and jwt_secret together")
	}
	return nil
}
