package app

import (
	"fmt"
	"math"
	"time"

	"lyric-quiz-service/internal/domain"
)

// Machine is the quiz state machine of a single session. It is not safe for concurrent
// use: Session serializes every call, including replay deadlines, onto its event loop.
type Machine struct {
	sched    Scheduler
	shuffler *Shuffler

	songID string
	index  *domain.SegmentIndex
	player Player

	phase        domain.Phase
	current      int
	status       domain.AnswerStatus
	selected     *string
	segmentEnded bool
	score        int
	presented    []string

	// at most one replay deadline is pending; replayGen invalidates fires that raced a cancel
	stopReplay func() bool
	replayGen  uint64

	version uint64
}

func NewMachine(sched Scheduler, shuffler *Shuffler) *Machine {
	if sched == nil {
		sched = realScheduler{}
	}
	if shuffler == nil {
		shuffler = NewShuffler()
	}
	return &Machine{sched: sched, shuffler: shuffler}
}

// Load replaces the script and audio source and resets the session to AwaitingStart.
// player may be nil; Start then stays unavailable until a script is loaded with one.
func (m *Machine) Load(songID string, index *domain.SegmentIndex, player Player) {
	m.cancelReplay()
	if m.player != nil {
		m.player.Pause()
	}
	m.songID = songID
	m.index = index
	m.player = player
	m.resetProgress()
	m.phase = domain.PhaseAwaitingStart
	m.shuffleCurrent()
	m.touch()
}

// Start begins playback at the first segment.
func (m *Machine) Start() error {
	if m.index == nil {
		return domain.ErrNoScript
	}
	if m.phase != domain.PhaseAwaitingStart {
		return fmt.Errorf("start from %s: %w", m.phase, domain.ErrInvalidTransition)
	}
	if m.index.Len() == 0 {
		return domain.ErrEmptyScript
	}
	if m.player == nil {
		return domain.ErrPlayerUnavailable
	}
	m.player.Seek(m.index.At(0).StartTime)
	m.player.Play()
	m.phase = domain.PhaseSegmentActive
	m.touch()
	return nil
}

// OnPosition synchronizes the machine with the playback position t, in seconds.
func (m *Machine) OnPosition(t float64) {
	if m.phase != domain.PhaseSegmentActive && m.phase != domain.PhaseSegmentSolved {
		return
	}
	last := m.current == m.index.Len()-1
	if last && m.status == domain.Correct && t >= m.trackEnd() {
		m.finish()
		return
	}
	if t < m.windowEnd(m.current) {
		return
	}
	if m.status == domain.Correct {
		m.advance()
		return
	}
	m.endSegment()
}

// SubmitAnswer checks option against the current segment. A repeated submission after
// the segment is solved changes nothing.
func (m *Machine) SubmitAnswer(option string) error {
	if m.index == nil {
		return domain.ErrNoScript
	}
	switch m.phase {
	case domain.PhaseSegmentActive, domain.PhaseSegmentEnded, domain.PhaseSegmentSolved:
	default:
		return fmt.Errorf("answer in %s: %w", m.phase, domain.ErrInvalidTransition)
	}
	if m.status == domain.Correct {
		return nil
	}

	seg := m.activeSegment()
	selected := option
	m.selected = &selected
	if option != seg.Answer {
		m.status = domain.Incorrect
		m.touch()
		return nil
	}

	m.status = domain.Correct
	m.score++
	m.cancelReplay()
	switch {
	case m.current == m.index.Len()-1:
		m.finish()
	case m.phase == domain.PhaseSegmentEnded:
		m.advance()
	default:
		m.phase = domain.PhaseSegmentSolved
		m.touch()
	}
	return nil
}

// Replay plays the current segment's window again. Unless the segment is already solved,
// the audio pauses when the window has elapsed.
func (m *Machine) Replay() error {
	if m.index == nil {
		return domain.ErrNoScript
	}
	switch m.phase {
	case domain.PhaseSegmentActive, domain.PhaseSegmentEnded, domain.PhaseSegmentSolved:
	default:
		return fmt.Errorf("replay in %s: %w", m.phase, domain.ErrInvalidTransition)
	}
	if m.player == nil {
		return domain.ErrPlayerUnavailable
	}

	start := m.activeSegment().StartTime
	end := m.windowEnd(m.current)
	m.player.Seek(start)
	m.player.Play()
	m.segmentEnded = false

	if m.status == domain.Correct {
		m.cancelReplay()
		m.phase = domain.PhaseSegmentSolved
		m.touch()
		return nil
	}
	m.phase = domain.PhaseSegmentActive
	if math.IsInf(end, 1) {
		m.cancelReplay()
	} else {
		m.armReplay(time.Duration((end - start) * float64(time.Second)))
	}
	m.touch()
	return nil
}

// Restart replays the whole script from the first segment with a fresh score.
func (m *Machine) Restart() error {
	if m.index == nil {
		return domain.ErrNoScript
	}
	if m.phase == domain.PhaseIdle || m.phase == domain.PhaseAwaitingStart {
		return fmt.Errorf("restart from %s: %w", m.phase, domain.ErrInvalidTransition)
	}
	if m.player == nil {
		return domain.ErrPlayerUnavailable
	}
	if m.index.Len() == 0 {
		return domain.ErrEmptyScript
	}
	m.cancelReplay()
	m.resetProgress()
	m.shuffleCurrent()
	m.player.Seek(m.index.At(0).StartTime)
	m.player.Play()
	m.phase = domain.PhaseSegmentActive
	m.touch()
	return nil
}

// Close tears the machine down. Pending deadlines are cancelled and the machine returns
// to Idle.
func (m *Machine) Close() {
	m.cancelReplay()
	m.songID = ""
	m.index = nil
	m.player = nil
	m.resetProgress()
	m.phase = domain.PhaseIdle
	m.touch()
}

func (m *Machine) advance() {
	m.cancelReplay()
	m.current++
	m.status = domain.Unanswered
	m.selected = nil
	m.segmentEnded = false
	if m.current >= m.index.Len() {
		m.finish()
		return
	}
	m.shuffleCurrent()
	if m.player != nil {
		m.player.Play()
	}
	m.phase = domain.PhaseSegmentActive
	m.touch()
}

func (m *Machine) endSegment() {
	m.cancelReplay()
	m.segmentEnded = true
	m.phase = domain.PhaseSegmentEnded
	if m.player != nil {
		m.player.Pause()
	}
	m.touch()
}

func (m *Machine) finish() {
	m.cancelReplay()
	m.current = m.index.Len()
	m.status = domain.Unanswered
	m.selected = nil
	m.segmentEnded = false
	m.presented = nil
	if m.player != nil {
		m.player.Pause()
	}
	m.phase = domain.PhaseFinished
	m.touch()
}

func (m *Machine) armReplay(d time.Duration) {
	m.cancelReplay()
	gen := m.replayGen
	m.stopReplay = m.sched.AfterFunc(d, func() { m.onReplayDeadline(gen) })
}

func (m *Machine) onReplayDeadline(gen uint64) {
	if gen != m.replayGen || m.stopReplay == nil {
		return
	}
	m.stopReplay = nil
	if m.status == domain.Correct || m.phase != domain.PhaseSegmentActive {
		return
	}
	m.endSegment()
}

func (m *Machine) cancelReplay() {
	if m.stopReplay != nil {
		m.stopReplay()
		m.stopReplay = nil
	}
	m.replayGen++
}

func (m *Machine) resetProgress() {
	m.current = 0
	m.score = 0
	m.status = domain.Unanswered
	m.selected = nil
	m.segmentEnded = false
	m.presented = nil
}

func (m *Machine) shuffleCurrent() {
	if m.index == nil || m.current >= m.index.Len() {
		m.presented = nil
		return
	}
	m.presented = m.shuffler.Shuffle(m.index.At(m.current).Options)
}

func (m *Machine) activeSegment() domain.Segment {
	if m.current >= m.index.Len() {
		panic(fmt.Sprintf("quiz: segment %d accessed in phase %s with %d segments", m.current, m.phase, m.index.Len()))
	}
	return m.index.At(m.current)
}

func (m *Machine) windowEnd(i int) float64 {
	if i == m.index.Len()-1 {
		return m.trackEnd()
	}
	_, end := m.index.WindowOf(i)
	return end
}

func (m *Machine) trackEnd() float64 {
	if d := m.index.Duration(); d > 0 {
		return d
	}
	if m.player != nil {
		if d := m.player.Duration(); d > 0 {
			return d
		}
	}
	return math.Inf(1)
}

func (m *Machine) touch() {
	m.version++
}

// Version increases on every state change.
func (m *Machine) Version() uint64 { return m.version }

func (m *Machine) Phase() domain.Phase { return m.phase }

func (m *Machine) CurrentIndex() int { return m.current }

func (m *Machine) Score() int { return m.score }

func (m *Machine) AnswerStatus() domain.AnswerStatus { return m.status }

func (m *Machine) SegmentEnded() bool { return m.segmentEnded }

// PresentedOptions returns the shuffled options of the current segment.
func (m *Machine) PresentedOptions() []string {
	out := make([]string, len(m.presented))
	copy(out, m.presented)
	return out
}

// Snapshot renders the machine state for clients.
func (m *Machine) Snapshot(sessionID string) domain.State {
	st := domain.State{
		SessionID:    sessionID,
		SongID:       m.songID,
		Phase:        m.phase.String(),
		CurrentIndex: m.current,
		Total:        m.index.Len(),
		AnswerStatus: m.status.String(),
		SegmentEnded: m.segmentEnded,
		Score:        m.score,
		CanStart:     m.phase == domain.PhaseAwaitingStart && m.player != nil && m.index.Len() > 0,
	}
	if m.selected != nil {
		selected := *m.selected
		st.SelectedOption = &selected
	}
	if m.index == nil || m.current >= m.index.Len() {
		return st
	}

	seg := m.index.At(m.current)
	st.Phrase = seg.Phrase
	st.Options = m.PresentedOptions()
	st.WindowStart = seg.StartTime
	if end := m.windowEnd(m.current); !math.IsInf(end, 1) {
		st.WindowEnd = &end
	}
	if m.status == domain.Correct {
		st.CorrectOption = seg.Answer
	}
	return st
}
