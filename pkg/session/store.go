package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the background sweeper looks for
// sessions whose channel never saw another event.
const DefaultSweepInterval = time.Minute

// Store is an in-memory registry of live sessions keyed by channel id.
// It is safe for concurrent use, and it hands out snapshots: Get returns a
// private copy, Put stores a copy of its argument. Handlers mutate their own
// copy freely and publish through Put, so concurrent handlers for the same
// channel never share mutable session state; the session ID comparison in
// DeleteMatching decides races between them. The sweep goroutine is a coarse
// safety net that reclaims sessions in channels that never see another
// event; the user-facing timeout notice is the engine's inline staleness
// check.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Get returns a copy of the live session for the channel, if any. Mutations
// on the copy become visible only through Put.
func (s *Store) Get(channelID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[channelID]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

// Put stores a copy of the session for its channel, overwriting
// unconditionally. The caller keeps sole ownership of its instance.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ChannelID] = sess.clone()
}

// Delete removes the channel's session. Idempotent.
func (s *Store) Delete(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, channelID)
}

// DeleteMatching removes the channel's session only if it is still the given
// instance. It reports whether a deletion happened. Handlers resuming after
// I/O use this so a concurrently ended-and-restarted session is left alone.
func (s *Store) DeleteMatching(channelID, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[channelID]
	if !ok || sess.ID != sessionID {
		return false
	}
	delete(s.sessions, channelID)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// SweepExpired removes every session idle longer than maxIdle and returns
// how many were removed.
func (s *Store) SweepExpired(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.Stale(now, maxIdle) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper starts a background goroutine that sweeps expired sessions on
// a fixed interval. The goroutine is stopped when Close is called.
func (s *Store) StartSweeper(interval, maxIdle time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.SweepExpired(maxIdle); n > 0 {
					slog.Debug("session: sweep removed idle sessions", "count", n)
				}
			}
		}
	}()
}

// Close stops the sweep goroutine and waits for it to exit.
// Safe to call even if StartSweeper was never called.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}
