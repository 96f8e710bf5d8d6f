package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLintScriptReportsSegments(t *testing.T) {
	script := `[00:00.000]Is this the real
options:life, love
answer:life

[00:05.500]Is this just
options:fantasy
answer:fantasy
`
	var out bytes.Buffer
	if err := lintScript(strings.NewReader(script), 10, &out); err != nil {
		t.Fatalf("lint: %v", err)
	}
	report := out.String()
	if !strings.Contains(report, "segments: 1, dropped blocks: 1") {
		t.Fatalf("unexpected report:\n%s", report)
	}
	if !strings.Contains(report, "00:00.000-00:10.000") {
		t.Fatalf("expected last window to end at the track duration:\n%s", report)
	}
}

func TestLintScriptWarnsOnOrder(t *testing.T) {
	script := `[00:05.000]b
options:x, y
answer:x
[00:01.000]a
options:x, y
answer:y
`
	var out bytes.Buffer
	if err := lintScript(strings.NewReader(script), 0, &out); err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !strings.Contains(out.String(), "warning:") {
		t.Fatalf("expected order warning:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "-end") {
		t.Fatalf("expected open-ended last window:\n%s", out.String())
	}
}

func TestLintScriptFailsWithoutSegments(t *testing.T) {
	var out bytes.Buffer
	err := lintScript(strings.NewReader("just some words\n"), 0, &out)
	if !errors.Is(err, errNoSegments) {
		t.Fatalf("expected no segments error, got %v", err)
	}
}
