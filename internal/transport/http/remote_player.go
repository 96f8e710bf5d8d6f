package http

import (
	"math"
	"sync"
)

const (
	playerSeek  = "seek"
	playerPlay  = "play"
	playerPause = "pause"
)

type playerCommand struct {
	Action   string  `json:"action"`
	Position float64 `json:"position"`
	Seq      uint64  `json:"seq"`
}

// remotePlayer drives the audio element in the browser. Commands go out as player
// frames; the client reports its position back tagged with the seq of the last seek
// it applied, so reports from before a seek are discarded.
type remotePlayer struct {
	emit func(playerCommand)

	mu       sync.Mutex
	position float64
	duration float64
	seq      uint64
}

func newRemotePlayer(emit func(playerCommand)) *remotePlayer {
	return &remotePlayer{emit: emit}
}

func (p *remotePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *remotePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *remotePlayer) Seek(seconds float64) {
	p.mu.Lock()
	p.seq++
	p.position = seconds
	cmd := playerCommand{Action: playerSeek, Position: seconds, Seq: p.seq}
	p.mu.Unlock()
	p.emit(cmd)
}

func (p *remotePlayer) Play() {
	p.emit(p.command(playerPlay))
}

func (p *remotePlayer) Pause() {
	p.emit(p.command(playerPause))
}

func (p *remotePlayer) command(action string) playerCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return playerCommand{Action: action, Position: p.position, Seq: p.seq}
}

// setDuration records a known track length; non-positive values are ignored.
func (p *remotePlayer) setDuration(seconds float64) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	p.mu.Lock()
	p.duration = seconds
	p.mu.Unlock()
}

// resetDuration forgets the track length, e.g. when another song is loaded.
func (p *remotePlayer) resetDuration() {
	p.mu.Lock()
	p.duration = 0
	p.mu.Unlock()
}

// report applies a client position tick and reports whether it is current.
func (p *remotePlayer) report(position, duration float64, seq uint64) bool {
	if math.IsNaN(position) || math.IsInf(position, 0) {
		return false
	}
	p.setDuration(duration)
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq < p.seq {
		return false
	}
	p.position = position
	return true
}
