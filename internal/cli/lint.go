package cli

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lyric-quiz-service/internal/domain"
	"lyric-quiz-service/internal/lyrics"
)

var errNoSegments = errors.New("script has no playable segments")

// NewLintCmd checks a lyric script the way the server would read it.
func NewLintCmd() *cobra.Command {
	var duration float64
	cmd := &cobra.Command{
		Use:   "lint <script.txt>",
		Short: "Parse a lyric script and report its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return lintScript(f, duration, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Float64Var(&duration, "duration", 0, "track length in seconds, 0 when unknown")
	return cmd
}

func lintScript(r io.Reader, duration float64, w io.Writer) error {
	parsed, err := lyrics.ParseReader(r)
	if err != nil {
		return err
	}

	index, orderErr := domain.NewSegmentIndex(parsed.Segments, duration)
	for i := 0; i < index.Len(); i++ {
		seg := index.At(i)
		start, end := index.WindowOf(i)
		fmt.Fprintf(w, "%3d  %s-%s  %-40s  [%s]  -> %s\n",
			i+1, formatTime(start), formatTime(end), seg.Phrase, strings.Join(seg.Options, ", "), seg.Answer)
	}
	fmt.Fprintf(w, "segments: %d, dropped blocks: %d\n", index.Len(), parsed.Dropped)
	if orderErr != nil {
		fmt.Fprintf(w, "warning: %v\n", orderErr)
	}
	if index.Len() == 0 {
		return errNoSegments
	}
	return nil
}

func formatTime(seconds float64) string {
	if math.IsInf(seconds, 1) {
		return "end"
	}
	m := int(seconds) / 60
	return fmt.Sprintf("%02d:%06.3f", m, seconds-float64(m*60))
}
