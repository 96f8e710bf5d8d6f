// Package lyrics parses timestamped lyric quiz scripts.
//
// A script is a sequence of three-line blocks:
//
//	[01:02.500]And I will always love
//	options:you, me, them
//	answer:you
//
// Parsing never fails. Incomplete blocks are dropped and counted.
package lyrics

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"lyric-quiz-service/internal/domain"
)

const (
	optionsPrefix = "options:"
	answerPrefix  = "answer:"
)

var timestampLine = regexp.MustCompile(`^\[(\d+):(\d+(?:\.\d+)?)\](.+)$`)

// Result is the outcome of parsing a script.
type Result struct {
	Segments []domain.Segment
	// Dropped counts blocks that were closed by an answer line, cut off by the next
	// timestamp line or by the end of the text without forming a valid segment.
	Dropped int
}

type block struct {
	hasTime bool
	start   float64
	phrase  string
	options []string
	answer  string
	touched bool
}

func (b block) segment() (domain.Segment, bool) {
	if !b.hasTime || len(b.options) < 2 || b.answer == "" {
		return domain.Segment{}, false
	}
	seg := domain.Segment{
		StartTime: b.start,
		Phrase:    b.phrase,
		Options:   b.options,
		Answer:    b.answer,
	}
	if !seg.HasOption(b.answer) {
		return domain.Segment{}, false
	}
	return seg, true
}

// Parse turns script text into ordered segments.
func Parse(text string) Result {
	res, _ := ParseReader(strings.NewReader(text))
	return res
}

// ParseReader parses a script from r. The error is only non-nil when reading fails.
func ParseReader(r io.Reader) (Result, error) {
	var (
		res Result
		cur block
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "["):
			start, phrase, ok := parseTimestamp(line)
			if !ok {
				continue
			}
			if cur.hasTime {
				// a new block started before the previous one got its answer
				res.Dropped++
				cur = block{}
			}
			cur.hasTime = true
			cur.start = start
			cur.phrase = phrase
			cur.touched = true

		case strings.HasPrefix(line, optionsPrefix):
			cur.options = splitOptions(strings.TrimPrefix(line, optionsPrefix))
			cur.touched = true

		case strings.HasPrefix(line, answerPrefix):
			cur.answer = strings.TrimSpace(strings.TrimPrefix(line, answerPrefix))
			if seg, ok := cur.segment(); ok {
				res.Segments = append(res.Segments, seg)
			} else {
				res.Dropped++
			}
			cur = block{}
		}
	}
	if cur.touched {
		res.Dropped++
	}
	return res, scanner.Err()
}

func parseTimestamp(line string) (float64, string, bool) {
	m := timestampLine.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	seconds, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, "", false
	}
	return float64(minutes)*60 + seconds, strings.TrimSpace(m[3]), true
}

func splitOptions(raw string) []string {
	parts := strings.Split(raw, ",")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		if opt := strings.TrimSpace(p); opt != "" {
			options = append(options, opt)
		}
	}
	return options
}
