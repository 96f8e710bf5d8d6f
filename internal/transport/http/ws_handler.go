package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lyric-quiz-service/internal/app"
	"lyric-quiz-service/internal/domain"
)

// writeWait bounds a single frame write to a client.
const writeWait = 10 * time.Second

type WSHandler struct {
	service  *app.QuizService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type loadPayload struct {
	SongID   string  `json:"songId"`
	Script   string  `json:"script"`
	Duration float64 `json:"duration"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type positionPayload struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Seq      uint64  `json:"seq"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// outbox serializes writes to one connection through a single writer goroutine.
type outbox struct {
	send    chan outboundMessage[any]
	closing chan struct{}
	done    chan struct{}
}

// push queues msg unless the connection is going away.
func (o *outbox) push(msgType string, payload any) bool {
	select {
	case o.send <- outboundMessage[any]{Type: msgType, Payload: payload}:
		return true
	case <-o.closing:
		return false
	case <-o.done:
		return false
	}
}

func (o *outbox) pushError(err error) {
	o.push("error", errorPayload{Message: err.Error()})
}

type frameWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
	Close() error
}

// run drains send into conn. A write that misses its deadline closes the connection, so
// a client that stops reading cannot stall the session loop behind push.
func (o *outbox) run(conn frameWriter, wait time.Duration, log *zap.Logger) {
	defer close(o.done)
	for msg := range o.send {
		_ = conn.SetWriteDeadline(time.Now().Add(wait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("ws write error", zap.Error(err))
			_ = conn.Close()
			return
		}
	}
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID := uuid.NewString()
	log := h.logger.With(zap.String("session_id", sessionID))

	if _, err := h.service.Open(ctx, sessionID); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	out := &outbox{
		send:    make(chan outboundMessage[any], 32),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go out.run(conn, writeWait, log)

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		out.pushError(err)
		h.service.Close(ctx, sessionID)
		close(out.send)
		<-out.done
		return
	}
	defer cancel()

	out.push("session", sessionPayload{SessionID: sessionID})

	updatesDone := make(chan struct{})
	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if !out.push("state", update) {
					return
				}
			case <-out.closing:
				return
			}
		}
	}()

	player := newRemotePlayer(func(cmd playerCommand) { out.push("player", cmd) })
	log.Info("quiz session connected")

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, sessionID, inbound, player, out); err != nil {
			// the sweeper closed the session under us
			if errors.Is(err, domain.ErrSessionClosed) || errors.Is(err, domain.ErrSessionNotFound) {
				break
			}
			out.pushError(err)
		}
	}

	// Stop the session loop before closing send: player commands are emitted from it.
	close(out.closing)
	h.service.Close(context.Background(), sessionID)
	<-updatesDone
	close(out.send)
	<-out.done
	log.Info("quiz session disconnected")
}

var errUnsupportedMessage = errors.New("unsupported message type")

func (h *WSHandler) dispatch(ctx context.Context, sessionID string, inbound inboundMessage, player *remotePlayer, out *outbox) error {
	switch inbound.Type {
	case "load":
		var payload loadPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid load payload")
		}
		// a previous song's length must not leak into this one
		player.resetDuration()
		player.setDuration(payload.Duration)
		if payload.SongID == "" {
			_, err := h.service.LoadScript(ctx, sessionID, payload.Script, player, payload.Duration)
			return err
		}
		song, err := h.service.Song(ctx, payload.SongID)
		if err != nil {
			return err
		}
		out.push("song", song)
		_, err = h.service.LoadSong(ctx, sessionID, payload.SongID, player, payload.Duration)
		return err
	case "start":
		_, err := h.service.Start(ctx, sessionID)
		return err
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		_, err := h.service.SubmitAnswer(ctx, sessionID, payload.Option)
		return err
	case "replay":
		_, err := h.service.Replay(ctx, sessionID)
		return err
	case "restart":
		_, err := h.service.Restart(ctx, sessionID)
		return err
	case "position":
		var payload positionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid position payload")
		}
		if !player.report(payload.Position, payload.Duration, payload.Seq) {
			return nil
		}
		return h.service.ReportPosition(ctx, sessionID, payload.Position)
	default:
		return errUnsupportedMessage
	}
}
