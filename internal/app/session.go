package app

import (
	"context"
	"sync"
	"time"

	"lyric-quiz-service/internal/domain"
)

// Session hosts one quiz state machine behind an event loop. Every operation, position
// tick and replay deadline runs on the loop goroutine, one at a time.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	machine *Machine
	events  chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu          sync.RWMutex
	lastActive  time.Time
	subscribers map[chan domain.State]struct{}
}

type sessionConfig struct {
	now      func() time.Time
	sched    Scheduler
	shuffler *Shuffler
}

// SessionOption customizes a session, mostly for deterministic tests.
type SessionOption func(*sessionConfig)

func WithClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) { c.now = now }
}

func WithScheduler(sched Scheduler) SessionOption {
	return func(c *sessionConfig) { c.sched = sched }
}

func WithShuffler(shuffler *Shuffler) SessionOption {
	return func(c *sessionConfig) { c.shuffler = shuffler }
}

// NewSession starts the session loop. Callers must Close it to stop the goroutine.
func NewSession(id string, opts ...SessionOption) *Session {
	cfg := sessionConfig{now: time.Now, sched: realScheduler{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.shuffler == nil {
		cfg.shuffler = NewShuffler()
	}

	now := cfg.now()
	s := &Session{
		id:          id,
		createdAt:   now,
		now:         cfg.now,
		events:      make(chan func(), 16),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		lastActive:  now,
		subscribers: make(map[chan domain.State]struct{}),
	}
	s.machine = NewMachine(loopScheduler{session: s, inner: cfg.sched}, cfg.shuffler)
	go s.run()
	return s
}

func (s *Session) ID() string { return s.id }

// LastActive is the time of the latest client operation on the session.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) Load(ctx context.Context, songID string, index *domain.SegmentIndex, player Player) (domain.State, error) {
	return s.apply(ctx, func(m *Machine) error {
		m.Load(songID, index, player)
		return nil
	})
}

func (s *Session) Start(ctx context.Context) (domain.State, error) {
	return s.apply(ctx, (*Machine).Start)
}

func (s *Session) Answer(ctx context.Context, option string) (domain.State, error) {
	return s.apply(ctx, func(m *Machine) error { return m.SubmitAnswer(option) })
}

func (s *Session) Replay(ctx context.Context) (domain.State, error) {
	return s.apply(ctx, (*Machine).Replay)
}

func (s *Session) Restart(ctx context.Context) (domain.State, error) {
	return s.apply(ctx, (*Machine).Restart)
}

// ReportPosition feeds a playback tick into the machine. It is cheap and safe to call at
// media tick frequency.
func (s *Session) ReportPosition(ctx context.Context, position float64) error {
	return s.do(ctx, func(m *Machine) error {
		m.OnPosition(position)
		return nil
	})
}

func (s *Session) State(ctx context.Context) (domain.State, error) {
	return s.apply(ctx, func(*Machine) error { return nil })
}

// Subscribe returns a channel that receives a snapshot now and after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe(ctx context.Context) (<-chan domain.State, func(), error) {
	ch := make(chan domain.State, 8)
	err := s.do(ctx, func(m *Machine) error {
		s.mu.Lock()
		s.subscribers[ch] = struct{}{}
		s.mu.Unlock()
		ch <- m.Snapshot(s.id)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// Close stops the loop, cancels any pending replay deadline and closes subscriber
// channels. It blocks until the loop has exited and must not be called from the loop.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case task := <-s.events:
			before := s.machine.Version()
			task()
			if s.machine.Version() != before {
				s.broadcast(s.machine.Snapshot(s.id))
			}
		case <-s.done:
			s.machine.Close()
			s.closeSubscribers()
			return
		}
	}
}

func (s *Session) apply(ctx context.Context, op func(m *Machine) error) (domain.State, error) {
	var st domain.State
	err := s.do(ctx, func(m *Machine) error {
		opErr := op(m)
		st = m.Snapshot(s.id)
		return opErr
	})
	return st, err
}

func (s *Session) do(ctx context.Context, op func(m *Machine) error) error {
	reply := make(chan error, 1)
	task := func() { reply <- op(s.machine) }

	select {
	case s.events <- task:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	s.touch()

	select {
	case err := <-reply:
		return err
	case <-s.stopped:
		select {
		case err := <-reply:
			return err
		default:
			return domain.ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting for it; used for timer callbacks.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

func (s *Session) broadcast(st domain.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- st:
		default:
			// slow subscriber: drop its oldest snapshot so it always ends on the latest
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// loopScheduler runs deadline callbacks on the session loop instead of the timer goroutine.
type loopScheduler struct {
	session *Session
	inner   Scheduler
}

func (l loopScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return l.inner.AfterFunc(d, func() { l.session.post(fn) })
}
