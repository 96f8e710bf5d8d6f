package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"lyric-quiz-service/internal/domain"
	"lyric-quiz-service/internal/lyrics"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string) *Session
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	List() []*Session
}

// SongRepository loads catalog entries and their lyric scripts (from cache/backing store).
type SongRepository interface {
	GetSong(ctx context.Context, songID string) (domain.Song, error)
	ListSongs(ctx context.Context) ([]domain.Song, error)
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions SessionRepository
	songs    SongRepository
	logger   *zap.Logger
}

func NewQuizService(store SessionRepository, songs SongRepository, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{sessions: store, songs: songs, logger: logger}
}

// Songs lists the catalog.
func (s *QuizService) Songs(ctx context.Context) ([]domain.Song, error) {
	return s.songs.ListSongs(ctx)
}

// Song returns a catalog entry with its script.
func (s *QuizService) Song(ctx context.Context, songID string) (domain.Song, error) {
	return s.songs.GetSong(ctx, songID)
}

// Open creates the session if needed and returns its state.
func (s *QuizService) Open(ctx context.Context, sessionID string) (domain.State, error) {
	session := s.sessions.GetOrCreate(sessionID)
	return session.State(ctx)
}

// LoadSong fetches a catalog song's script and loads it with the given audio source.
// duration is the track length in seconds, 0 when not known yet.
func (s *QuizService) LoadSong(ctx context.Context, sessionID, songID string, player Player, duration float64) (domain.State, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.State{}, domain.ErrSessionNotFound
	}
	song, err := s.songs.GetSong(ctx, songID)
	if err != nil {
		return domain.State{}, err
	}
	return s.load(ctx, session, song.ID, song.Script, player, duration)
}

// LoadScript loads a user-supplied script, e.g. an uploaded lyric file.
func (s *QuizService) LoadScript(ctx context.Context, sessionID, script string, player Player, duration float64) (domain.State, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.State{}, domain.ErrSessionNotFound
	}
	return s.load(ctx, session, "", script, player, duration)
}

func (s *QuizService) load(ctx context.Context, session *Session, songID, script string, player Player, duration float64) (domain.State, error) {
	log := s.logger.With(zap.String("session_id", session.ID()), zap.String("song_id", songID))

	parsed := lyrics.Parse(script)
	if parsed.Dropped > 0 {
		log.Warn("dropped incomplete lyric blocks", zap.Int("dropped", parsed.Dropped))
	}
	index, err := domain.NewSegmentIndex(parsed.Segments, duration)
	if err != nil {
		log.Warn("lyric segments out of order, using raw order", zap.Error(err))
	}

	st, err := session.Load(ctx, songID, index, player)
	if err != nil {
		return st, err
	}
	log.Info("lyric script loaded", zap.Int("segments", index.Len()), zap.Float64("duration", duration))
	return st, nil
}

func (s *QuizService) Start(ctx context.Context, sessionID string) (domain.State, error) {
	return s.withSession(sessionID, func(session *Session) (domain.State, error) {
		return session.Start(ctx)
	})
}

// SubmitAnswer checks an option against the current segment and updates the score.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID, option string) (domain.State, error) {
	return s.withSession(sessionID, func(session *Session) (domain.State, error) {
		return session.Answer(ctx, option)
	})
}

func (s *QuizService) Replay(ctx context.Context, sessionID string) (domain.State, error) {
	return s.withSession(sessionID, func(session *Session) (domain.State, error) {
		return session.Replay(ctx)
	})
}

func (s *QuizService) Restart(ctx context.Context, sessionID string) (domain.State, error) {
	return s.withSession(sessionID, func(session *Session) (domain.State, error) {
		return session.Restart(ctx)
	})
}

// ReportPosition forwards a playback tick from the audio source.
func (s *QuizService) ReportPosition(ctx context.Context, sessionID string, position float64) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.ReportPosition(ctx, position)
}

// Subscribe returns a channel that receives state updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.State, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return session.Subscribe(ctx)
}

// Close tears the session down and drops it from the store.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

// SweepIdle closes sessions without activity since cutoff and returns how many it closed.
func (s *QuizService) SweepIdle(cutoff time.Time) int {
	closed := 0
	for _, session := range s.sessions.List() {
		if session.LastActive().After(cutoff) {
			continue
		}
		session.Close()
		s.sessions.Delete(session.ID())
		closed++
		s.logger.Info("closed idle session", zap.String("session_id", session.ID()))
	}
	return closed
}

func (s *QuizService) withSession(sessionID string, fn func(*Session) (domain.State, error)) (domain.State, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.State{}, domain.ErrSessionNotFound
	}
	st, err := fn(session)
	if err != nil && !errors.Is(err, domain.ErrSessionClosed) {
		s.logger.Debug("quiz operation rejected", zap.String("session_id", sessionID), zap.Error(err))
	}
	return st, err
}
