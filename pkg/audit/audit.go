// Package audit provides after-the-fact visibility into session activity:
// who started what, which answers were accepted, how calculations ended.
// Session state itself is ephemeral, so the audit trail is the only durable
// record of a conversation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened in a session.
type Action string

const (
	ActionSessionStarted   Action = "session_started"
	ActionAnswerAccepted   Action = "answer_accepted"
	ActionAnswerRejected   Action = "answer_rejected"
	ActionBacktracked      Action = "session_backtracked"
	ActionTimedOut         Action = "session_timed_out"
	ActionCalcSucceeded    Action = "calculation_succeeded"
	ActionCalcFailed       Action = "calculation_failed"
	ActionRecalculated     Action = "session_recalculated"
	ActionSessionEnded     Action = "session_ended"
	ActionFeedbackReceived Action = "feedback_received"
)

// Event is one auditable session action.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	SessionID    string    `json:"session_id,omitempty"`
	ChannelID    string    `json:"channel_id,omitempty"`
	GuildID      string    `json:"guild_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Step         int       `json:"step"`
	Detail       string    `json:"detail,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewEvent creates an event for an action, stamped now.
func NewEvent(action Action) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Success:   true,
	}
}

// WithSession attaches session identity to the event.
func (e Event) WithSession(sessionID, channelID, guildID, userID string) Event {
	e.SessionID = sessionID
	e.ChannelID = channelID
	e.GuildID = guildID
	e.UserID = userID
	return e
}

// WithKind attaches the calculation kind and step.
func (e Event) WithKind(kind string, step int) Event {
	e.Kind = kind
	e.Step = step
	return e
}

// WithDetail attaches free-form detail (question key, rejected input, ...).
func (e Event) WithDetail(detail string) Event {
	e.Detail = detail
	return e
}

// WithError marks the event failed and records the cause.
func (e Event) WithError(err error) Event {
	e.Success = false
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}

// Logger records audit events. Implementations must tolerate high call
// rates; callers treat failures as non-fatal.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	GuildID   string
	UserID    string
	Action    Action
	Limit     int
	Offset    int
}

// NoopLogger discards all events. Used when auditing is disabled.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(context.Context, Event) error { return nil }

// Query returns no events.
func (NoopLogger) Query(context.Context, QueryFilter) ([]Event, error) { return nil, nil }

// Close is a no-op.
func (NoopLogger) Close() error { return nil }

var _ Logger = NoopLogger{}
