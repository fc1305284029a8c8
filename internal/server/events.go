package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pennantware/warbot/pkg/chat"
	"github.com/pennantware/warbot/pkg/engine"
)

// messageEvent is a plain chat message forwarded by the platform bridge.
type messageEvent struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Content   string `json:"content"`

	// IsAdmin marks guild owners and administrators.
	IsAdmin bool `json:"is_admin"`

	// BotThread marks messages inside a thread the bot created.
	BotThread bool `json:"bot_thread"`
}

// commandEvent is a slash-command invocation forwarded by the bridge.
type commandEvent struct {
	Name      string            `json:"name"`
	GuildID   string            `json:"guild_id"`
	ChannelID string            `json:"channel_id"`
	UserID    string            `json:"user_id"`
	UserName  string            `json:"user_name"`
	Options   map[string]string `json:"options"`

	// IsAdmin marks guild owners and administrators.
	IsAdmin bool `json:"is_admin"`
}

// interactionEvent is a component interaction forwarded by the bridge.
type interactionEvent struct {
	CustomID  string   `json:"custom_id"`
	Values    []string `json:"values,omitempty"`
	GuildID   string   `json:"guild_id"`
	ChannelID string   `json:"channel_id"`
	UserID    string   `json:"user_id"`
	UserName  string   `json:"user_name"`
}

// eventResponse tells the bridge whether the event was consumed and which
// ephemeral replies to deliver to the invoking user.
type eventResponse struct {
	Handled bool     `json:"handled"`
	Replies []string `json:"replies,omitempty"`
}

// collectReplies builds a Replier that accumulates reply content for the
// bridge response.
func collectReplies(replies *[]string) chat.Replier {
	return func(_ context.Context, content string) error {
		*replies = append(*replies, content)
		return nil
	}
}

func decodeEvent(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return false
	}
	return true
}

// blocked reports whether the user is blacklisted. Lookup failures fail open
// so a database outage does not silence the bot.
func (s *Server) blocked(ctx context.Context, userID string) bool {
	listed, err := s.deps.Blacklist.Contains(ctx, userID)
	if err != nil {
		slog.Error("server: blacklist lookup failed", "user", userID, "error", err)
		return false
	}
	return listed
}

func (s *Server) handleMessageEvent(w http.ResponseWriter, r *http.Request) {
	var ev messageEvent
	if !decodeEvent(w, r, &ev) {
		return
	}
	if ev.ChannelID == "" || ev.UserID == "" {
		writeError(w, http.StatusBadRequest, "channel_id and user_id are required")
		return
	}

	ctx := r.Context()
	if s.blocked(ctx, ev.UserID) {
		writeJSON(w, http.StatusOK, eventResponse{Handled: false})
		return
	}

	var replies []string
	content := strings.TrimSpace(ev.Content)

	switch {
	case strings.HasPrefix(content, forceWarPrefix):
		s.handleForceWar(ctx, ev, &replies)
	case strings.HasPrefix(content, feedbackPrefix):
		s.handleFeedbackText(ctx, ev, strings.TrimPrefix(content, feedbackPrefix), &replies)
	default:
		err := s.deps.Engine.HandleAnswer(ctx, ev.ChannelID, ev.UserID, ev.Content)
		switch {
		case errors.Is(err, engine.ErrNoSession):
			// A paste-started session may be waiting for this user's
			// replacement value in this channel.
			editErr := s.deps.Engine.HandleEphemeralEdit(ctx, ev.ChannelID, ev.UserID, ev.Content)
			if editErr == nil || errors.Is(editErr, engine.ErrExpired) {
				break
			}
			if !errors.Is(editErr, engine.ErrNoSession) {
				slog.Error("server: ephemeral edit failed",
					"channel", ev.ChannelID, "user", ev.UserID, "error", editErr)
				break
			}
			if ev.BotThread {
				s.deps.Engine.HandleOrphanMessage(ctx, ev.ChannelID)
				break
			}
			writeJSON(w, http.StatusOK, eventResponse{Handled: false})
			return
		case errors.Is(err, engine.ErrNotOwner):
			// Other users may chat freely in a session thread.
			writeJSON(w, http.StatusOK, eventResponse{Handled: false})
			return
		case err != nil && !errors.Is(err, engine.ErrExpired):
			slog.Error("server: message handling failed",
				"channel", ev.ChannelID, "user", ev.UserID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, eventResponse{Handled: true, Replies: replies})
}

func (s *Server) handleCommandEvent(w http.ResponseWriter, r *http.Request) {
	var ev commandEvent
	if !decodeEvent(w, r, &ev) {
		return
	}
	if ev.ChannelID == "" || ev.UserID == "" || ev.Name == "" {
		writeError(w, http.StatusBadRequest, "name, channel_id and user_id are required")
		return
	}

	ctx := r.Context()
	var replies []string

	if s.blocked(ctx, ev.UserID) {
		writeJSON(w, http.StatusOK, eventResponse{Handled: true,
			Replies: []string{replyPermissionDenied}})
		return
	}

	switch ev.Name {
	case commandCalculate:
		s.handleCalculateCommand(ctx, ev, &replies)
	case commandPaste:
		s.handlePasteCommand(ctx, ev, &replies)
	case commandFeedback:
		s.handleFeedbackCommand(ctx, ev, &replies)
	case commandConfig:
		s.handleConfigCommand(ctx, ev, &replies)
	default:
		writeError(w, http.StatusBadRequest, "unknown command")
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{Handled: true, Replies: replies})
}

func (s *Server) handleInteractionEvent(w http.ResponseWriter, r *http.Request) {
	var ev interactionEvent
	if !decodeEvent(w, r, &ev) {
		return
	}
	if ev.CustomID == "" || ev.UserID == "" {
		writeError(w, http.StatusBadRequest, "custom_id and user_id are required")
		return
	}

	ctx := r.Context()
	var replies []string

	switch {
	case strings.HasPrefix(ev.CustomID, engine.CustomIDFieldPicker):
		channelKey := strings.TrimPrefix(ev.CustomID, engine.CustomIDFieldPicker)
		if len(ev.Values) == 0 {
			writeError(w, http.StatusBadRequest, "field selection carried no value")
			return
		}
		err := s.deps.Engine.HandleFieldSelect(ctx, channelKey, ev.UserID, ev.Values[0])
		replies = interactionReply(err, replies)

	case strings.HasPrefix(ev.CustomID, engine.CustomIDEndButton):
		channelKey := strings.TrimPrefix(ev.CustomID, engine.CustomIDEndButton)
		err := s.deps.Engine.EndSession(ctx, channelKey, ev.UserID)
		replies = interactionReply(err, replies)

	default:
		writeError(w, http.StatusBadRequest, "unknown component")
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{Handled: true, Replies: replies})
}

// interactionReply maps engine errors on explicit interactions to the
// ephemeral notices the invoker sees.
func interactionReply(err error, replies []string) []string {
	switch {
	case err == nil, errors.Is(err, engine.ErrExpired):
		// The engine already notified the conversation.
		return replies
	case errors.Is(err, engine.ErrNoSession):
		return append(replies, replySessionGone)
	case errors.Is(err, engine.ErrNotOwner):
		return append(replies, replyNotYourSession)
	default:
		slog.Error("server: interaction handling failed", "error", err)
		return append(replies, replyInternalError)
	}
}
