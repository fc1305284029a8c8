// Package session holds the in-memory state of active calculation sessions.
// It defines the Session entity the engine mutates and a Store that maps a
// conversation channel to at most one live session, with idle-timeout
// sweeping. Sessions are deliberately ephemeral: nothing here survives a
// process restart.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/pennantware/warbot/pkg/chat"
	"github.com/pennantware/warbot/pkg/questionnaire"
)

// Phase is the coarse lifecycle phase of a session.
type Phase string

const (
	// PhaseAsking means the session is walking through the questionnaire.
	PhaseAsking Phase = "asking"

	// PhaseCompleted means all questions are answered, a result has been
	// posted and the session is waiting for a recalculation field pick or
	// an explicit end.
	PhaseCompleted Phase = "completed"

	// PhaseEditing means a recalculation field was picked and the session
	// is waiting for its replacement value.
	PhaseEditing Phase = "editing"
)

// Session tracks one user's progress through a question sequence for one
// calculation request. Exactly one live Session exists per channel.
type Session struct {
	// ID uniquely identifies this session instance. Handlers resuming
	// after an I/O call compare it against the stored session to detect
	// that the session was ended or replaced while they were suspended.
	ID string

	// ChannelID is the conversation channel the session lives in. For
	// thread-backed sessions this is the dedicated thread; for ephemeral
	// sessions it is a synthetic key.
	ChannelID string

	// PostChannelID is where prompts and results are posted. Equal to
	// ChannelID for thread sessions; the originating channel for
	// ephemeral ones.
	PostChannelID string

	// OwnerID is the only user permitted to act on the session.
	OwnerID string

	// GuildID is the server the session was started from.
	GuildID string

	// Kind selects the question sequence. Immutable after start.
	Kind questionnaire.Kind

	// Year and League are fixed calculation parameters chosen at start.
	Year   int
	League string

	// Step is the zero-based index of the current question.
	// Invariant: 0 <= Step <= len(QuestionsFor(Kind)).
	Step int

	// Answers maps question keys to accepted values, populated in sequence
	// order as Step advances. Back-navigation removes the most recent key;
	// recalculation overwrites single keys in place.
	Answers map[string]float64

	// Phase is the lifecycle phase; EditKey is set only in PhaseEditing.
	Phase   Phase
	EditKey string

	// LastUpdateAt is the time of the last accepted user action and drives
	// both the inline staleness check and the store sweep.
	LastUpdateAt time.Time

	// LastResult references the most recently posted result message so its
	// interactive components can be stripped when a newer result replaces it.
	LastResult *chat.MessageRef

	// Ephemeral sessions own no thread and must never trigger channel
	// lifecycle operations.
	Ephemeral bool
}

// New creates a session at step zero in the asking phase.
func New(channelID, ownerID, guildID string, kind questionnaire.Kind, year int, league string, now time.Time) *Session {
	return &Session{
		ID:            uuid.NewString(),
		ChannelID:     channelID,
		PostChannelID: channelID,
		OwnerID:       ownerID,
		GuildID:       guildID,
		Kind:          kind,
		Year:          year,
		League:        league,
		Answers:       make(map[string]float64),
		Phase:         PhaseAsking,
		LastUpdateAt:  now,
	}
}

// clone returns a private copy of the session. The Answers map and the
// LastResult reference are copied so the clone shares no mutable state with
// the original.
func (s *Session) clone() *Session {
	c := *s
	c.Answers = make(map[string]float64, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	if s.LastResult != nil {
		ref := *s.LastResult
		c.LastResult = &ref
	}
	return &c
}

// Touch records an accepted user action.
func (s *Session) Touch(now time.Time) {
	s.LastUpdateAt = now
}

// IdleFor returns how long the session has been without an accepted action.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastUpdateAt)
}

// Stale reports whether the session has been idle beyond maxIdle.
func (s *Session) Stale(now time.Time, maxIdle time.Duration) bool {
	return s.IdleFor(now) > maxIdle
}
