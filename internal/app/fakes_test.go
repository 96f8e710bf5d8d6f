package app

import (
	"sort"
	"sync"
	"time"
)

type fakePlayer struct {
	mu       sync.Mutex
	position float64
	duration float64
	playing  bool
	calls    []string
}

func newFakePlayer(duration float64) *fakePlayer {
	return &fakePlayer{duration: duration}
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *fakePlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = seconds
	p.calls = append(p.calls, "seek")
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	p.calls = append(p.calls, "play")
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.calls = append(p.calls, "pause")
}

func (p *fakePlayer) isPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) count(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeScheduler is a manual clock: callbacks run synchronously from Advance.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*fakeTimer
	fired  int
}

type fakeTimer struct {
	id int
	at time.Duration
	fn func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{timers: make(map[int]*fakeTimer)}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.timers[id] = &fakeTimer{id: id, at: s.now + d, fn: fn}
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.timers[id]; !ok {
			return false
		}
		delete(s.timers, id)
		return true
	}
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*fakeTimer
	for id, t := range s.timers {
		if t.at <= s.now {
			due = append(due, t)
			delete(s.timers, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		s.mu.Lock()
		s.fired++
		s.mu.Unlock()
		t.fn()
	}
}

func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
