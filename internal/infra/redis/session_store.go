package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"lyric-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions own a playback loop and a live socket, so they stay in a local map.
//   - Redis marks liveness per session so other instances and operators can count
//     active quizzes; the key expires on its own if this process dies.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	opts     []app.SessionOption
	now      func() time.Time
	mu       sync.RWMutex
	sessions map[string]*app.Session

	// last liveness write per session; lookups refresh at most once per ttl/2
	refreshMu sync.Mutex
	refreshed map[string]time.Time
}

func NewSessionStore(client *redis.Client, ttl time.Duration, opts ...app.SessionOption) *SessionStore {
	return &SessionStore{
		client:    client,
		ttl:       ttl,
		opts:      opts,
		now:       time.Now,
		sessions:  make(map[string]*app.Session),
		refreshed: make(map[string]time.Time),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := app.NewSession(sessionID, s.opts...)
	s.sessions[sessionID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
	s.markRefreshed(sessionID, s.now())
	return session
}

// Get also extends the liveness marker, since every client operation looks the session up.
// Position ticks come through here too, so Redis is only touched once per half ttl.
func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.refreshDue(sessionID) {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) refreshDue(sessionID string) bool {
	if s.ttl <= 0 {
		return false
	}
	now := s.now()
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if last, ok := s.refreshed[sessionID]; ok && now.Sub(last) < s.ttl/2 {
		return false
	}
	s.refreshed[sessionID] = now
	return true
}

func (s *SessionStore) markRefreshed(sessionID string, at time.Time) {
	s.refreshMu.Lock()
	s.refreshed[sessionID] = at
	s.refreshMu.Unlock()
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	s.refreshMu.Lock()
	delete(s.refreshed, sessionID)
	s.refreshMu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
