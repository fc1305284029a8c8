package engine

import (
	"context"
	"fmt"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/questionnaire"
	"github.com/pennantware/warbot/pkg/session"
)

// HandleFieldSelect processes a pick from the post-result field picker. The
// session moves into the editing phase and the conversation is prompted for
// the replacement value.
func (e *Engine) HandleFieldSelect(ctx context.Context, channelID, userID, key string) error {
	sess, err := e.recalcSession(ctx, channelID, userID)
	if err != nil {
		return err
	}

	q, ok := questionnaire.Lookup(sess.Kind, key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	current, ok := sess.Answers[key]
	if !ok {
		return fmt.Errorf("%w: %s has no answer", ErrUnknownField, key)
	}

	sess.Phase = session.PhaseEditing
	sess.EditKey = key
	sess.Touch(e.now())
	e.store.Put(sess)

	e.post(ctx, sess.PostChannelID, fmt.Sprintf(msgEditPrompt, q.Label, formatAnswer(current)))
	return nil
}

// EphemeralKey is the synthetic channel key of a paste-started session. The
// session lives outside any real channel, so the key combines the channel the
// paste happened in with the pasting user.
func EphemeralKey(channelID, userID string) string {
	return "paste:" + channelID + ":" + userID
}

// HandleEphemeralEdit routes a plain channel message to the user's ephemeral
// session when that session is waiting for a replacement value. Ordinary chat
// in the channel is left alone: anything arriving while the ephemeral session
// is not mid-edit returns ErrNoSession.
func (e *Engine) HandleEphemeralEdit(ctx context.Context, channelID, userID, text string) error {
	key := EphemeralKey(channelID, userID)
	sess, ok := e.store.Get(key)
	if !ok || sess.Phase != session.PhaseEditing {
		return ErrNoSession
	}
	return e.HandleAnswer(ctx, key, userID, text)
}

// recalcSession resolves and guards the session behind a recalculation
// interaction: it must exist, belong to the acting user, be fresh, and be
// past the question loop. A picker surviving from an earlier session fails
// the ID match in the store and resolves to ErrNoSession.
func (e *Engine) recalcSession(ctx context.Context, channelID, userID string) (*session.Session, error) {
	sess, ok := e.store.Get(channelID)
	if !ok {
		return nil, ErrNoSession
	}
	if userID != sess.OwnerID {
		return nil, ErrNotOwner
	}
	if sess.Stale(e.now(), e.idleTimeout) {
		e.retire(ctx, sess, msgTimedOut, audit.ActionTimedOut)
		return nil, ErrExpired
	}
	if sess.Phase == session.PhaseAsking {
		return nil, ErrNoSession
	}
	return sess, nil
}
