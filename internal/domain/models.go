package domain

// Segment is one quiz unit: a phrase shown from StartTime whose missing word is Answer.
type Segment struct {
	StartTime float64  `json:"startTime"`
	Phrase    string   `json:"phrase"`
	Options   []string `json:"options"`
	Answer    string   `json:"answer"`
}

// HasOption reports whether option is one of the segment's candidates.
func (s Segment) HasOption(option string) bool {
	for _, o := range s.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Song describes a catalog entry and, once fetched, its lyric script.
type Song struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	CoverImageRef   string `json:"coverImageRef"`
	AudioRef        string `json:"audioRef"`
	LyricsScriptRef string `json:"lyricsScriptRef"`
	Script          string `json:"-"`
}

// Phase is the state of a quiz session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingStart
	PhaseSegmentActive
	PhaseSegmentEnded
	PhaseSegmentSolved
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingStart:
		return "awaitingStart"
	case PhaseSegmentActive:
		return "segmentActive"
	case PhaseSegmentEnded:
		return "segmentEnded"
	case PhaseSegmentSolved:
		return "segmentSolved"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// AnswerStatus is the outcome of the latest submission for the current segment.
type AnswerStatus int

const (
	Unanswered AnswerStatus = iota
	Correct
	Incorrect
)

func (a AnswerStatus) String() string {
	switch a {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unanswered"
	}
}

// State is a snapshot of a quiz session, pushed to clients after every change.
type State struct {
	SessionID      string   `json:"sessionId"`
	SongID         string   `json:"songId,omitempty"`
	Phase          string   `json:"phase"`
	CurrentIndex   int      `json:"currentIndex"`
	Total          int      `json:"total"`
	Phrase         string   `json:"phrase,omitempty"`
	Options        []string `json:"options,omitempty"`
	SelectedOption *string  `json:"selectedOption"`
	AnswerStatus   string   `json:"answerStatus"`
	CorrectOption  string   `json:"correctOption,omitempty"`
	SegmentEnded   bool     `json:"segmentEnded"`
	Score          int      `json:"score"`
	WindowStart    float64  `json:"windowStart"`
	WindowEnd      *float64 `json:"windowEnd"` // nil when the window runs to an unknown track end
	CanStart       bool     `json:"canStart"`
}
