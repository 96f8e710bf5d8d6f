package app

import "time"

// Player is the playback capability a session drives. Implementations report a
// continuously advancing position; position notifications reach the session through
// QuizService.ReportPosition.
type Player interface {
	Position() float64
	Duration() float64
	Seek(seconds float64)
	Play()
	Pause()
}

// Scheduler runs fn once after d. The returned stop function cancels a pending call and
// reports whether it did so.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}
