package http

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stuckWriter fails every write the way a missed write deadline does.
type stuckWriter struct {
	mu        sync.Mutex
	deadlines int
	closed    bool
}

func (w *stuckWriter) SetWriteDeadline(time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deadlines++
	return nil
}

func (w *stuckWriter) WriteJSON(interface{}) error {
	return errors.New("i/o timeout")
}

func (w *stuckWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func newOutbox(size int) *outbox {
	return &outbox{
		send:    make(chan outboundMessage[any], size),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func TestOutboxStopsAfterFailedWrite(t *testing.T) {
	out := newOutbox(0)
	w := &stuckWriter{}
	go out.run(w, time.Millisecond, zap.NewNop())

	if !out.push("state", nil) {
		t.Fatalf("expected first frame handed to the writer")
	}
	select {
	case <-out.done:
	case <-time.After(time.Second):
		t.Fatalf("writer did not exit after a failed write")
	}

	w.mu.Lock()
	closed, deadlines := w.closed, w.deadlines
	w.mu.Unlock()
	if !closed || deadlines != 1 {
		t.Fatalf("expected deadline set and connection closed, closed=%v deadlines=%d", closed, deadlines)
	}

	// player commands from the session loop must not block on a dead writer
	player := newRemotePlayer(func(cmd playerCommand) { out.push("player", cmd) })
	finished := make(chan struct{})
	go func() {
		player.Seek(3)
		player.Play()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("player commands blocked on a dead writer")
	}
}

func TestLoadResetsDurationFromPreviousSong(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	if _, err := service.Open(ctx, "session-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer service.Close(ctx, "session-1")

	h := NewWSHandler(service, nil)
	out := newOutbox(32)
	player := newRemotePlayer(func(playerCommand) {})

	load := func(duration float64) {
		t.Helper()
		payload, _ := json.Marshal(loadPayload{SongID: "bohemian", Duration: duration})
		if err := h.dispatch(ctx, "session-1", inboundMessage{Type: "load", Payload: payload}, player, out); err != nil {
			t.Fatalf("load: %v", err)
		}
	}

	load(200)
	if player.Duration() != 200 {
		t.Fatalf("expected duration from first load, got %v", player.Duration())
	}
	load(0)
	if player.Duration() != 0 {
		t.Fatalf("expected unknown duration after second load, got %v", player.Duration())
	}
}
