// Package guildconfig provides per-guild bot settings: which channels may
// host calculations, and which role gets pinged when a session thread opens.
// Settings are stored as raw key/value pairs so new keys need no schema
// change; this package owns the known keys and the assembled Config view.
package guildconfig

import (
	"context"
	"slices"
	"strings"
)

// ChannelMode controls where calculation sessions may be started.
type ChannelMode string

const (
	// ModeRestricted limits session starts to the allowed channel list.
	ModeRestricted ChannelMode = "restricted"

	// ModeAllowAll permits session starts in any channel.
	ModeAllowAll ChannelMode = "allow_all"
)

// Known setting keys.
const (
	KeyChannelMode     = "channel_mode"
	KeyAllowedChannels = "allowed_channels"
	KeyNotifyRoleID    = "notify_role_id"
)

// Config is the assembled view of a guild's settings.
type Config struct {
	// ChannelMode defaults to ModeAllowAll when unset: a freshly invited
	// bot works everywhere until the guild opts into restriction.
	ChannelMode ChannelMode

	// AllowedChannels lists channel ids that may host sessions in
	// restricted mode.
	AllowedChannels []string

	// NotifyRoleID, when set, is mentioned in new session threads.
	NotifyRoleID string
}

// Allows reports whether a session may be started in the channel.
func (c Config) Allows(channelID string) bool {
	if c.ChannelMode == ModeAllowAll {
		return true
	}
	return slices.Contains(c.AllowedChannels, channelID)
}

// FromValues assembles a Config from raw key/value settings. Unknown keys
// are ignored; missing keys fall back to defaults.
func FromValues(values map[string]string) Config {
	cfg := Config{ChannelMode: ModeAllowAll}

	if mode, ok := values[KeyChannelMode]; ok && ChannelMode(mode) == ModeRestricted {
		cfg.ChannelMode = ModeRestricted
	}
	if raw, ok := values[KeyAllowedChannels]; ok {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.AllowedChannels = append(cfg.AllowedChannels, id)
			}
		}
	}
	cfg.NotifyRoleID = values[KeyNotifyRoleID]
	return cfg
}

// Store provides guild setting storage and retrieval.
type Store interface {
	// Get returns the guild's assembled settings. A guild with no stored
	// settings yields the default Config, not an error.
	Get(ctx context.Context, guildID string) (Config, error)

	// Set writes one raw setting.
	Set(ctx context.Context, guildID, key, value string) error

	// Unset removes one raw setting. Removing an absent key is not an error.
	Unset(ctx context.Context, guildID, key string) error
}
