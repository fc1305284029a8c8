// Package engine drives interactive WAR-calculation sessions: it owns the
// question state machine, validates answers, detects idle sessions, hands
// completed questionnaires to the calculation backend and runs the
// post-result recalculation sub-flow.
//
// Handlers are invoked concurrently by the gateway. Any handler that
// resumes after an adapter or backend call re-fetches the session from the
// store and compares session IDs; a missing or replaced session turns the
// continuation into a no-op with respect to session state.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pennantware/warbot/pkg/audit"
	"github.com/pennantware/warbot/pkg/calc"
	"github.com/pennantware/warbot/pkg/chat"
	"github.com/pennantware/warbot/pkg/session"
)

// DefaultIdleTimeout is how long a session may sit without an accepted
// action before the next action retires it.
const DefaultIdleTimeout = 10 * time.Minute

var (
	// ErrNoSession means the channel has no live session. For plain text
	// input this is a silent outcome; for explicit interactions the caller
	// may tell the user the session is gone.
	ErrNoSession = errors.New("engine: no session for channel")

	// ErrNotOwner means a user other than the session owner acted on it.
	ErrNotOwner = errors.New("engine: not the session owner")

	// ErrExpired means the session had idled out; the engine has already
	// retired it and notified the conversation.
	ErrExpired = errors.New("engine: session expired")

	// ErrUnknownField means a field edit referenced a key the session's
	// questionnaire does not contain.
	ErrUnknownField = errors.New("engine: unknown field")

	// ErrEmptyQuestionnaire means a session start was attempted for a kind
	// with no questions.
	ErrEmptyQuestionnaire = errors.New("engine: empty questionnaire")
)

// Config configures the engine.
type Config struct {
	Store      *session.Store
	Adapter    chat.Adapter
	Calculator calc.Calculator

	// Audit receives session events; defaults to audit.NoopLogger.
	Audit audit.Logger

	// IdleTimeout overrides DefaultIdleTimeout when positive.
	IdleTimeout time.Duration

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Engine orchestrates session lifecycles.
type Engine struct {
	store       *session.Store
	adapter     chat.Adapter
	calc        calc.Calculator
	audit       audit.Logger
	idleTimeout time.Duration
	now         func() time.Time
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if cfg.Adapter == nil {
		return nil, errors.New("engine: chat adapter is required")
	}
	if cfg.Calculator == nil {
		return nil, errors.New("engine: calculator is required")
	}

	e := &Engine{
		store:       cfg.Store,
		adapter:     cfg.Adapter,
		calc:        cfg.Calculator,
		audit:       cfg.Audit,
		idleTimeout: cfg.IdleTimeout,
		now:         cfg.Clock,
	}
	if e.audit == nil {
		e.audit = audit.NoopLogger{}
	}
	if e.idleTimeout <= 0 {
		e.idleTimeout = DefaultIdleTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// detachedCtx is used for audit writes so they are not cancelled together
// with the triggering request.
var detachedCtx = context.Background()

// record emits an audit event; failures are logged, never propagated.
func (e *Engine) record(event audit.Event) {
	// Detached context: audit must not be cancelled along with the
	// triggering request.
	if err := e.audit.Log(detachedCtx, event); err != nil {
		slog.Warn("engine: audit log failed", "action", string(event.Action), "error", err)
	}
}

// sessionEvent stamps an event with the session's identity.
func sessionEvent(action audit.Action, sess *session.Session) audit.Event {
	return audit.NewEvent(action).
		WithSession(sess.ID, sess.ChannelID, sess.GuildID, sess.OwnerID).
		WithKind(string(sess.Kind), sess.Step)
}

// calcRecord builds the backend request for a session's answer set.
func calcRecord(sess *session.Session) calc.Record {
	return calc.NewRecord(string(sess.Kind), sess.Year, sess.League, sess.Answers)
}
