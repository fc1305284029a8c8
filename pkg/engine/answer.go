package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/chat"
	"github.com/pennantware/warbot/pkg/questionnaire"
	"github.com/pennantware/warbot/pkg/session"
	"github.com/pennantware/warbot/pkg/stats"
)

// HandleAnswer processes a plain text message in a session channel. It
// recognizes the control tokens, retires stale sessions, and otherwise treats
// the text as the answer to the current question (or to the field being
// edited after a result).
//
// ErrNoSession and ErrNotOwner mean no session state changed; callers decide
// whether to respond, and for ordinary messages the convention is silence.
func (e *Engine) HandleAnswer(ctx context.Context, channelID, userID, text string) error {
	sess, ok := e.store.Get(channelID)
	if !ok {
		return ErrNoSession
	}
	if userID != sess.OwnerID {
		return ErrNotOwner
	}

	// Control tokens act even on stale sessions.
	switch strings.TrimSpace(text) {
	case tokenEnd:
		e.retire(ctx, sess, msgSessionEnded, audit.ActionSessionEnded)
		return nil
	case tokenBack:
		return e.handleBack(ctx, sess)
	}

	now := e.now()
	if sess.Stale(now, e.idleTimeout) {
		e.retire(ctx, sess, msgTimedOut, audit.ActionTimedOut)
		return ErrExpired
	}

	switch sess.Phase {
	case session.PhaseEditing:
		return e.handleEditInput(ctx, sess, strings.TrimSpace(text))
	case session.PhaseCompleted:
		// Free chat after a result; the picker is the only input surface.
		return nil
	}

	questions := questionnaire.QuestionsFor(sess.Kind)
	if sess.Step >= len(questions) {
		// Calculation in flight for the final answer; ignore extra input.
		return nil
	}
	current := questions[sess.Step]

	value, err := stats.ParseValue(text)
	if err != nil {
		rejection := msgNotANumber
		if errors.Is(err, stats.ErrNegative) {
			rejection = msgNegativeNumber
		}
		e.post(ctx, sess.PostChannelID, rejection+"\n"+questionPrompt(sess.Step, questions))
		e.record(sessionEvent(audit.ActionAnswerRejected, sess).
			WithDetail(current.Key).WithError(err))
		return nil
	}

	sess.Answers[current.Key] = value
	sess.Step++
	sess.Touch(now)
	e.store.Put(sess)
	e.record(sessionEvent(audit.ActionAnswerAccepted, sess).WithDetail(current.Key))

	if sess.Step < len(questions) {
		e.post(ctx, sess.PostChannelID, questionPrompt(sess.Step, questions))
		return nil
	}
	return e.runCalculation(ctx, sess, false)
}

// handleBack rewinds one question: the current question's pending answer
// slot is abandoned and the previous answer is discarded so it can be given
// again. Before the first question, and once the questionnaire is complete,
// there is nothing to rewind.
func (e *Engine) handleBack(ctx context.Context, sess *session.Session) error {
	if sess.Phase != session.PhaseAsking || sess.Step == 0 {
		e.post(ctx, sess.PostChannelID, msgNoFurtherBack)
		return nil
	}

	questions := questionnaire.QuestionsFor(sess.Kind)
	sess.Step--
	delete(sess.Answers, questions[sess.Step].Key)
	sess.Touch(e.now())
	e.store.Put(sess)

	e.post(ctx, sess.PostChannelID,
		fmt.Sprintf(msgBackOne, sess.Step+1, len(questions), questions[sess.Step].Prompt))
	e.record(sessionEvent(audit.ActionBacktracked, sess).WithDetail(questions[sess.Step].Key))
	return nil
}

// handleEditInput consumes the replacement value for the field picked in the
// recalculation sub-flow. Invalid input re-prompts without touching state.
func (e *Engine) handleEditInput(ctx context.Context, sess *session.Session, text string) error {
	key := sess.EditKey
	value, err := stats.ParseValue(text)
	if err != nil {
		rejection := msgNotANumber
		if errors.Is(err, stats.ErrNegative) {
			rejection = msgNegativeNumber
		}
		prompt := rejection
		if q, ok := questionnaire.Lookup(sess.Kind, key); ok {
			prompt += "\n" + fmt.Sprintf(msgEditPrompt, q.Label, formatAnswer(sess.Answers[key]))
		}
		e.post(ctx, sess.PostChannelID, prompt)
		e.record(sessionEvent(audit.ActionAnswerRejected, sess).
			WithDetail(key).WithError(err))
		return nil
	}
	return e.applyEdit(ctx, sess, key, value)
}

// applyEdit overwrites one answer and recalculates.
func (e *Engine) applyEdit(ctx context.Context, sess *session.Session, key string, value float64) error {
	sess.Answers[key] = value
	sess.EditKey = ""
	sess.Phase = session.PhaseCompleted
	sess.Touch(e.now())
	e.store.Put(sess)
	e.record(sessionEvent(audit.ActionRecalculated, sess).WithDetail(key))
	return e.runCalculation(ctx, sess, true)
}

// runCalculation hands the completed answer set to the backend and posts the
// outcome. The session may be ended or replaced while the request is in
// flight; the continuation re-checks the store and never resurrects a
// retired session.
//
// A backend failure ends a first-run session, but a recalculation failure
// keeps the session alive: the previous result and its picker are still on
// screen, so the user can simply pick a field and try again.
func (e *Engine) runCalculation(ctx context.Context, sess *session.Session, recalc bool) error {
	e.post(ctx, sess.PostChannelID, msgCalculating)

	record := calcRecord(sess)
	result, err := e.calc.Calculate(ctx, record)

	live, ok := e.store.Get(sess.ChannelID)
	alive := ok && live.ID == sess.ID

	if err != nil {
		slog.Error("engine: calculation failed",
			"session", sess.ID, "channel", sess.ChannelID,
			"kind", string(sess.Kind), "error", err)
		e.record(sessionEvent(audit.ActionCalcFailed, sess).WithError(err))
		e.post(ctx, sess.PostChannelID, msgCalcFailed)
		if !recalc && alive && e.store.DeleteMatching(sess.ChannelID, sess.ID) && !sess.Ephemeral {
			e.closeChannel(ctx, sess.ChannelID)
		}
		return err
	}

	if !alive {
		// Ended mid-flight: show the numbers, but attach no controls that
		// would act on a dead session.
		if _, err := e.adapter.Post(ctx, sess.PostChannelID, resultMessage(sess, result, false)); err != nil {
			slog.Warn("engine: posting late result failed",
				"channel", sess.PostChannelID, "session", sess.ID, "error", err)
		}
		e.record(sessionEvent(audit.ActionCalcSucceeded, sess).WithDetail("session retired mid-flight"))
		return nil
	}

	if live.LastResult != nil {
		if err := e.adapter.StripComponents(ctx, *live.LastResult); err != nil {
			slog.Warn("engine: stripping previous result failed",
				"channel", live.LastResult.ChannelID, "message", live.LastResult.MessageID, "error", err)
		}
	}

	ref, err := e.adapter.Post(ctx, live.PostChannelID, resultMessage(live, result, true))
	if err != nil {
		slog.Error("engine: posting result failed",
			"channel", live.PostChannelID, "session", live.ID, "error", err)
		e.record(sessionEvent(audit.ActionCalcFailed, live).WithError(err))
		return fmt.Errorf("engine: post result: %w", err)
	}

	live.LastResult = &ref
	live.Phase = session.PhaseCompleted
	live.EditKey = ""
	live.Touch(e.now())
	e.store.Put(live)

	slog.Info("engine: calculation succeeded",
		"session", live.ID, "channel", live.ChannelID, "kind", string(live.Kind))
	e.record(sessionEvent(audit.ActionCalcSucceeded, live))
	return nil
}

// post sends a plain text message, logging delivery failures instead of
// propagating them.
func (e *Engine) post(ctx context.Context, channelID, content string) {
	if _, err := e.adapter.Post(ctx, channelID, chat.Text(content)); err != nil {
		slog.Warn("engine: message delivery failed", "channel", channelID, "error", err)
	}
}
