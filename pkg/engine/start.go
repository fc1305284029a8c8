package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/chat"
	"github.com/pennantware/warbot/pkg/questionnaire"
	"github.com/pennantware/warbot/pkg/session"
)

// StartOptions carries per-guild presentation settings into a session start.
type StartOptions struct {
	// NotifyRoleID, when set, is mentioned in the opening thread message.
	NotifyRoleID string
}

// StartSession creates a dedicated thread, seeds a fresh session in it and
// posts the first question. On any failure before the session is stored, no
// session state exists; the trigger receives an error notice instead.
//
// Channel-mode policy and blacklist checks happen before this call; the
// engine assumes the trigger is allowed to start.
func (e *Engine) StartSession(ctx context.Context, trigger chat.Trigger, kind questionnaire.Kind, year int, league string, opts StartOptions) error {
	questions := questionnaire.QuestionsFor(kind)
	if len(questions) == 0 {
		_ = trigger.Reply(ctx, msgThreadFailed)
		return fmt.Errorf("%w: kind %q", ErrEmptyQuestionnaire, kind)
	}

	threadID, err := e.adapter.CreateThread(ctx, trigger.ChannelID(), "WAR計算-"+trigger.UserName())
	if err != nil {
		slog.Error("engine: thread creation failed",
			"parent_channel", trigger.ChannelID(), "user", trigger.UserID(), "error", err)
		_ = trigger.Reply(ctx, msgThreadFailed)
		return fmt.Errorf("%w: %v", chat.ErrChannelCreation, err)
	}
	if err := e.adapter.AddMember(ctx, threadID, trigger.UserID()); err != nil {
		slog.Error("engine: adding member to thread failed",
			"channel", threadID, "user", trigger.UserID(), "error", err)
		e.closeChannel(ctx, threadID)
		_ = trigger.Reply(ctx, msgThreadFailed)
		return fmt.Errorf("%w: %v", chat.ErrChannelCreation, err)
	}

	// The thread is unique to this session, so the channel key is free.
	sess := session.New(threadID, trigger.UserID(), trigger.GuildID(), kind, year, league, e.now())
	e.store.Put(sess)

	_ = trigger.Acknowledge(ctx, fmt.Sprintf(msgThreadCreated, threadID))

	if _, err := e.adapter.Post(ctx, threadID, chat.Text(firstPrompt(sess, questions, opts.NotifyRoleID))); err != nil {
		slog.Error("engine: posting first question failed",
			"channel", threadID, "session", sess.ID, "error", err)
		e.store.DeleteMatching(threadID, sess.ID)
		e.closeChannel(ctx, threadID)
		_ = trigger.Reply(ctx, msgThreadFailed)
		return fmt.Errorf("engine: post first prompt: %w", err)
	}

	slog.Info("engine: session started",
		"session", sess.ID, "channel", threadID, "guild", sess.GuildID,
		"user", sess.OwnerID, "kind", string(kind), "year", year, "league", league)
	e.record(sessionEvent(audit.ActionSessionStarted, sess))
	return nil
}

// StartEphemeral runs a pre-answered session straight to calculation: no
// thread, no question loop. The result is posted through the trigger's reply
// surface rather than a channel, and the session stays live afterwards so
// single-field recalculation still works.
func (e *Engine) StartEphemeral(ctx context.Context, trigger chat.Trigger, kind questionnaire.Kind, year int, league string, answers map[string]float64) error {
	questions := questionnaire.QuestionsFor(kind)
	if len(questions) == 0 {
		return fmt.Errorf("%w: kind %q", ErrEmptyQuestionnaire, kind)
	}
	for _, q := range questions {
		if _, ok := answers[q.Key]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, q.Key)
		}
	}

	// One ephemeral session per user per channel; a repeat paste replaces
	// the previous one.
	key := EphemeralKey(trigger.ChannelID(), trigger.UserID())
	sess := session.New(key, trigger.UserID(), trigger.GuildID(), kind, year, league, e.now())
	sess.PostChannelID = trigger.ChannelID()
	sess.Ephemeral = true
	sess.Step = len(questions)
	for k, v := range answers {
		sess.Answers[k] = v
	}
	e.store.Put(sess)

	e.record(sessionEvent(audit.ActionSessionStarted, sess).WithDetail("paste"))
	return e.runCalculation(ctx, sess, false)
}

// EndSession retires the channel's session on the owner's request.
func (e *Engine) EndSession(ctx context.Context, channelID, userID string) error {
	sess, ok := e.store.Get(channelID)
	if !ok {
		return ErrNoSession
	}
	if userID != sess.OwnerID {
		return ErrNotOwner
	}
	e.retire(ctx, sess, msgSessionEnded, audit.ActionSessionEnded)
	return nil
}

// HandleOrphanMessage responds in a session-shaped channel that no longer
// has a live session, then closes it.
func (e *Engine) HandleOrphanMessage(ctx context.Context, channelID string) {
	if _, err := e.adapter.Post(ctx, channelID, chat.Text(msgSessionGone)); err != nil {
		slog.Warn("engine: orphan notice failed", "channel", channelID, "error", err)
	}
	e.closeChannel(ctx, channelID)
}

// retire deletes the session, notifies the conversation, strips stale result
// components and closes the thread. Safe to race with other handlers: only
// the caller that wins the delete performs the side effects.
func (e *Engine) retire(ctx context.Context, sess *session.Session, notice string, action audit.Action) {
	if !e.store.DeleteMatching(sess.ChannelID, sess.ID) {
		return
	}
	if notice != "" {
		if _, err := e.adapter.Post(ctx, sess.PostChannelID, chat.Text(notice)); err != nil {
			slog.Warn("engine: retirement notice failed",
				"channel", sess.PostChannelID, "session", sess.ID, "error", err)
		}
	}
	if sess.LastResult != nil {
		if err := e.adapter.StripComponents(ctx, *sess.LastResult); err != nil {
			slog.Warn("engine: stripping result components failed",
				"channel", sess.LastResult.ChannelID, "message", sess.LastResult.MessageID, "error", err)
		}
	}
	if !sess.Ephemeral {
		e.closeChannel(ctx, sess.ChannelID)
	}
	slog.Info("engine: session retired",
		"session", sess.ID, "channel", sess.ChannelID, "action", string(action))
	e.record(sessionEvent(action, sess))
}

// closeChannel locks and archives a thread, best effort.
func (e *Engine) closeChannel(ctx context.Context, channelID string) {
	if err := e.adapter.LockAndArchive(ctx, channelID); err != nil {
		slog.Warn("engine: closing thread failed", "channel", channelID, "error", err)
	}
}
