package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/chat"
	"github.com/pennantware/warbot/pkg/engine"
	"github.com/pennantware/warbot/pkg/feedback"
	"github.com/pennantware/warbot/pkg/gametime"
	"github.com/pennantware/warbot/pkg/guildconfig"
	"github.com/pennantware/warbot/pkg/questionnaire"
	"github.com/pennantware/warbot/pkg/stats"
)

// Slash command names the bridge forwards.
const (
	commandCalculate = "calculate"
	commandPaste     = "paste"
	commandFeedback  = "feedback"
	commandConfig    = "config"
)

// Text command prefixes recognized in plain messages.
const (
	forceWarPrefix = "!force_war"
	feedbackPrefix = "!feedback "
)

// User-visible gateway replies.
const (
	replyPermissionDenied  = "!!!エラー: このコマンドを実行する権限がありません。!!!"
	replyChannelNotAllowed = "!!!エラー: このチャンネルではWAR計算を実行できません。!!!"
	replyInvalidKind       = "!!!エラー: 種別は fielder か pitcher を指定してください。!!!"
	replyInvalidYear       = "!!!エラー: 年は%d年から%d年の間で指定してください。!!!"
	replyMissingLeague     = "!!!エラー: リーグを指定してください。!!!"
	replyPasteIncomplete   = "!!!エラー: 貼り付け内容を読み取れませんでした。不足: %s!!!"
	replyFeedbackThanks    = "フィードバックを送信しました。ありがとうございます!"
	replyFeedbackEmpty     = "!!!エラー: フィードバック内容が空です。!!!"
	replyFeedbackTooLong   = "!!!エラー: フィードバックは2000文字以内で入力してください。!!!"
	replySessionGone       = "このセッションは有効期限切れか、終了しています。新しい計算を行うには、再度コマンドを実行してください。"
	replyNotYourSession    = "このセッションを操作できるのは開始したユーザーだけです。"
	replyInternalError     = "!!!エラー: 処理に失敗しました。時間を置いて再度お試しください。!!!"
	replyForceWarUsage     = "使い方: !force_war <fielder|pitcher> <年> <リーグ>"
	replyConfigUpdated     = "設定を更新しました。"
	replyConfigUsage       = "使い方: /config <mode|allow_channel|disallow_channel|notify_role>"
	replyInvalidMode       = "!!!エラー: モードは allow_all か restricted を指定してください。!!!"
)

// calcParams are the validated start parameters shared by every entry path.
type calcParams struct {
	kind   questionnaire.Kind
	year   int
	league string
}

// parseCalcParams validates kind, year and league from raw option strings.
// A non-empty reply string means validation failed and explains why.
func (s *Server) parseCalcParams(rawKind, rawYear, rawLeague string) (calcParams, string) {
	kind := questionnaire.Kind(strings.TrimSpace(rawKind))
	if !kind.Valid() {
		return calcParams{}, replyInvalidKind
	}

	now := s.deps.Clock()
	year, err := strconv.Atoi(stats.Fold(strings.TrimSpace(rawYear)))
	if err != nil || !gametime.ValidYear(year, now) {
		return calcParams{}, fmt.Sprintf(replyInvalidYear, gametime.MinYear, gametime.CurrentYear(now))
	}

	league := strings.TrimSpace(rawLeague)
	if league == "" {
		return calcParams{}, replyMissingLeague
	}
	return calcParams{kind: kind, year: year, league: league}, ""
}

// channelAllowed applies the guild's channel-mode policy. Config lookup
// failures fail closed: a misconfigured guild should not open every channel.
func (s *Server) channelAllowed(ctx context.Context, guildID, channelID string) bool {
	cfg, err := s.deps.Guilds.Get(ctx, guildID)
	if err != nil {
		slog.Error("server: guild config lookup failed", "guild", guildID, "error", err)
		return false
	}
	return cfg.Allows(channelID)
}

func (s *Server) handleCalculateCommand(ctx context.Context, ev commandEvent, replies *[]string) {
	params, rejection := s.parseCalcParams(ev.Options["kind"], ev.Options["year"], ev.Options["league"])
	if rejection != "" {
		*replies = append(*replies, rejection)
		return
	}
	if !s.channelAllowed(ctx, ev.GuildID, ev.ChannelID) {
		*replies = append(*replies, replyChannelNotAllowed)
		return
	}

	cfg, err := s.deps.Guilds.Get(ctx, ev.GuildID)
	if err != nil {
		slog.Error("server: guild config lookup failed", "guild", ev.GuildID, "error", err)
	}

	trigger := chat.CommandTrigger{
		User:    ev.UserID,
		Name:    ev.UserName,
		Guild:   ev.GuildID,
		Channel: ev.ChannelID,
		Respond: collectReplies(replies),
	}
	err = s.deps.Engine.StartSession(ctx, trigger, params.kind, params.year, params.league,
		engine.StartOptions{NotifyRoleID: cfg.NotifyRoleID})
	if err != nil {
		slog.Error("server: session start failed",
			"guild", ev.GuildID, "channel", ev.ChannelID, "user", ev.UserID, "error", err)
	}
}

// handleForceWar starts a session from the administrative text command:
// !force_war <fielder|pitcher> <year> <league>. Same policy checks as the
// slash command; restricted to guild owners and administrators.
func (s *Server) handleForceWar(ctx context.Context, ev messageEvent, replies *[]string) {
	if !ev.IsAdmin {
		*replies = append(*replies, replyPermissionDenied)
		return
	}

	fields := strings.Fields(ev.Content)
	if len(fields) != 4 {
		*replies = append(*replies, replyForceWarUsage)
		return
	}

	params, rejection := s.parseCalcParams(fields[1], fields[2], fields[3])
	if rejection != "" {
		*replies = append(*replies, rejection)
		return
	}
	if !s.channelAllowed(ctx, ev.GuildID, ev.ChannelID) {
		*replies = append(*replies, replyChannelNotAllowed)
		return
	}

	cfg, err := s.deps.Guilds.Get(ctx, ev.GuildID)
	if err != nil {
		slog.Error("server: guild config lookup failed", "guild", ev.GuildID, "error", err)
	}

	trigger := chat.MessageTrigger{
		User:    ev.UserID,
		Name:    ev.UserName,
		Guild:   ev.GuildID,
		Channel: ev.ChannelID,
		Respond: collectReplies(replies),
	}
	err = s.deps.Engine.StartSession(ctx, trigger, params.kind, params.year, params.league,
		engine.StartOptions{NotifyRoleID: cfg.NotifyRoleID})
	if err != nil {
		slog.Error("server: forced session start failed",
			"guild", ev.GuildID, "channel", ev.ChannelID, "user", ev.UserID, "error", err)
	}
}

// handlePasteCommand runs the ephemeral flow: a pasted stats block becomes a
// complete answer set and goes straight to calculation, no thread.
func (s *Server) handlePasteCommand(ctx context.Context, ev commandEvent, replies *[]string) {
	params, rejection := s.parseCalcParams(ev.Options["kind"], ev.Options["year"], ev.Options["league"])
	if rejection != "" {
		*replies = append(*replies, rejection)
		return
	}
	if !s.channelAllowed(ctx, ev.GuildID, ev.ChannelID) {
		*replies = append(*replies, replyChannelNotAllowed)
		return
	}

	answers, err := stats.Parse(ev.Options["stats"], params.kind)
	if err != nil {
		var pe *stats.ParseError
		if errors.As(err, &pe) {
			*replies = append(*replies,
				fmt.Sprintf(replyPasteIncomplete, strings.Join(pe.MissingLabels, ", ")))
			return
		}
		slog.Error("server: paste parsing failed", "user", ev.UserID, "error", err)
		*replies = append(*replies, replyInternalError)
		return
	}

	trigger := chat.CommandTrigger{
		User:    ev.UserID,
		Name:    ev.UserName,
		Guild:   ev.GuildID,
		Channel: ev.ChannelID,
		Respond: collectReplies(replies),
	}
	if err := s.deps.Engine.StartEphemeral(ctx, trigger, params.kind, params.year, params.league, answers); err != nil {
		slog.Error("server: ephemeral session failed",
			"guild", ev.GuildID, "user", ev.UserID, "error", err)
	}
}

// handleConfigCommand lets guild owners and administrators adjust per-guild
// settings: the channel policy, the allowed channel list and the role
// mentioned when a session thread opens.
func (s *Server) handleConfigCommand(ctx context.Context, ev commandEvent, replies *[]string) {
	if !ev.IsAdmin {
		*replies = append(*replies, replyPermissionDenied)
		return
	}

	var err error
	switch ev.Options["action"] {
	case "mode":
		mode := guildconfig.ChannelMode(strings.TrimSpace(ev.Options["mode"]))
		if mode != guildconfig.ModeAllowAll && mode != guildconfig.ModeRestricted {
			*replies = append(*replies, replyInvalidMode)
			return
		}
		err = s.deps.Guilds.Set(ctx, ev.GuildID, guildconfig.KeyChannelMode, string(mode))

	case "allow_channel", "disallow_channel":
		channel := strings.TrimSpace(ev.Options["channel"])
		if channel == "" {
			// No explicit target means the channel the command ran in.
			channel = ev.ChannelID
		}
		err = s.updateAllowedChannels(ctx, ev.GuildID, channel, ev.Options["action"] == "allow_channel")

	case "notify_role":
		role := strings.TrimSpace(ev.Options["role"])
		if role == "" {
			err = s.deps.Guilds.Unset(ctx, ev.GuildID, guildconfig.KeyNotifyRoleID)
		} else {
			err = s.deps.Guilds.Set(ctx, ev.GuildID, guildconfig.KeyNotifyRoleID, role)
		}

	default:
		*replies = append(*replies, replyConfigUsage)
		return
	}

	if err != nil {
		slog.Error("server: guild config update failed",
			"guild", ev.GuildID, "user", ev.UserID, "error", err)
		*replies = append(*replies, replyInternalError)
		return
	}
	*replies = append(*replies, replyConfigUpdated)
}

// updateAllowedChannels rewrites the allowed channel list with one id added
// or removed.
func (s *Server) updateAllowedChannels(ctx context.Context, guildID, channelID string, allow bool) error {
	cfg, err := s.deps.Guilds.Get(ctx, guildID)
	if err != nil {
		return err
	}

	channels := cfg.AllowedChannels
	if allow {
		if slices.Contains(channels, channelID) {
			return nil
		}
		channels = append(channels, channelID)
	} else {
		channels = slices.DeleteFunc(channels, func(id string) bool { return id == channelID })
	}

	if len(channels) == 0 {
		return s.deps.Guilds.Unset(ctx, guildID, guildconfig.KeyAllowedChannels)
	}
	return s.deps.Guilds.Set(ctx, guildID, guildconfig.KeyAllowedChannels, strings.Join(channels, ","))
}

func (s *Server) handleFeedbackCommand(ctx context.Context, ev commandEvent, replies *[]string) {
	s.storeFeedback(ctx, feedback.Entry{
		GuildID:  ev.GuildID,
		UserID:   ev.UserID,
		UserName: ev.UserName,
		Content:  ev.Options["content"],
	}, replies)
}

func (s *Server) handleFeedbackText(ctx context.Context, ev messageEvent, content string, replies *[]string) {
	s.storeFeedback(ctx, feedback.Entry{
		GuildID:  ev.GuildID,
		UserID:   ev.UserID,
		UserName: ev.UserName,
		Content:  content,
	}, replies)
}

func (s *Server) storeFeedback(ctx context.Context, entry feedback.Entry, replies *[]string) {
	if err := entry.Validate(); err != nil {
		if errors.Is(err, feedback.ErrTooLong) {
			*replies = append(*replies, replyFeedbackTooLong)
		} else {
			*replies = append(*replies, replyFeedbackEmpty)
		}
		return
	}
	if err := s.deps.Feedback.Add(ctx, entry); err != nil {
		slog.Error("server: storing feedback failed", "user", entry.UserID, "error", err)
		*replies = append(*replies, replyInternalError)
		return
	}

	event := audit.NewEvent(audit.ActionFeedbackReceived)
	event.GuildID = entry.GuildID
	event.UserID = entry.UserID
	if err := s.deps.Audit.Log(ctx, event); err != nil {
		slog.Warn("server: audit log failed", "action", string(event.Action), "error", err)
	}
	*replies = append(*replies, replyFeedbackThanks)
}
