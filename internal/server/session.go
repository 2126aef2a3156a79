package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/rooms"
	"github.com/npezzotti/studychat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Close codes used by the protocol.
const (
	ClosePolicyViolation   = websocket.ClosePolicyViolation
	CloseUnsupportedData   = websocket.CloseUnsupportedData
	CloseInternalServerErr = websocket.CloseInternalServerErr
)

type outbound struct {
	payload []byte

	// When closeCode is non-zero the writer sends payload (if any), then a
	// close frame, then exits.
	closeCode int
	closeText string
}

// Session is one authenticated WebSocket connection bound to one room. The
// read loop processes frames strictly in arrival order; the write loop owns
// the connection for data frames.
type Session struct {
	conn     *websocket.Conn
	registry *ConnectionRegistry
	service  *rooms.RoomService
	log      *log.Logger
	user     types.User
	room     database.Room
	send     chan outbound
	done     chan struct{}
	closed   atomic.Bool
}

func NewSession(user types.User, room database.Room, conn *websocket.Conn, registry *ConnectionRegistry, service *rooms.RoomService, logger *log.Logger) *Session {
	return &Session{
		conn:     conn,
		registry: registry,
		service:  service,
		log:      logger,
		user:     user,
		room:     room,
		send:     make(chan outbound, 256),
		done:     make(chan struct{}),
	}
}

// Run registers the session, greets the entrant, and drives the read loop
// until the connection dies. Every exit path deregisters.
func (s *Session) Run() {
	s.registry.Connect(s.room.ExternalId, s.user.Id, s)
	defer s.registry.Disconnect(s.room.ExternalId, s.user.Id, s)

	go s.writeLoop()

	s.registry.Unicast(s.room.ExternalId, s.user.Id,
		NewStatusFrame(fmt.Sprintf("%s joined %s", s.user.Username, s.room.Name)))

	s.readLoop()
}

// Alive reports whether the socket is still open and the user still holds
// send permission. The idle sweeper closes sessions that report false.
func (s *Session) Alive() bool {
	if s.closed.Load() {
		return false
	}

	return s.service.CanSend(s.user, s.room)
}

// Close forces the session shut from outside the read loop, such as when a
// newer connection replaces it. WriteControl is safe to call concurrently
// with the write loop.
func (s *Session) Close(code int, reason string) {
	if s.closed.Swap(true) {
		return
	}

	if s.conn != nil {
		deadline := time.Now().Add(writeWait)
		if err := s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline); err != nil {
			s.log.Printf("write close frame: %v", err)
		}
	}

	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
}

// queue enqueues a data frame without blocking. Dropped frames are the
// caller's problem; delivery is best-effort.
func (s *Session) queue(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- outbound{payload: payload}:
		return true
	default:
		return false
	}
}

// sendError reports a per-frame failure inline and keeps the session open.
func (s *Session) sendError(message string) {
	payload, err := json.Marshal(NewErrorFrame(message))
	if err != nil {
		s.log.Printf("failed to marshal error frame: %v", err)
		return
	}

	if !s.queue(payload) {
		s.log.Printf("dropped error frame for user %d in room %s", s.user.Id, s.room.ExternalId)
	}
}

// shutdown queues a final error frame followed by an ordered close so the
// client sees the reason before the close frame.
func (s *Session) shutdown(code int, reason string) {
	payload, err := json.Marshal(NewErrorFrame(reason))
	if err != nil {
		payload = nil
	}

	select {
	case s.send <- outbound{payload: payload, closeCode: code, closeText: reason}:
	default:
		// Writer is wedged, close directly.
		s.Close(code, reason)
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.closed.Store(true)
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			if msg.payload != nil {
				if !s.writeMessage(websocket.TextMessage, msg.payload) {
					return
				}
			}

			if msg.closeCode != 0 {
				s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(msg.closeCode, msg.closeText), time.Now().Add(writeWait))
				return
			}
		case <-s.done:
			return
		case <-ticker.C:
			if !s.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Session) writeMessage(msgType int, payload []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(msgType, payload); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Printf("write message: %v", err)
		}
		return false
	}

	return true
}

func (s *Session) readLoop() {
	defer func() {
		s.closed.Store(true)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.sendError("invalid message format")
			continue
		}
		if frame.Content == "" {
			s.sendError("content is required")
			continue
		}

		// Permission is re-derived on every frame; losing it ends the
		// session.
		if !s.service.CanSend(s.user, s.room) {
			s.shutdown(ClosePolicyViolation, "no longer permitted to send messages")
			return
		}

		msg, err := s.service.SendMessage(context.Background(), s.user, s.room.ExternalId, rooms.SendMessageParams{
			Content: frame.Content,
			Type:    database.MessageText,
		})
		if err != nil {
			if errors.Is(err, rooms.ErrForbidden) {
				s.shutdown(ClosePolicyViolation, "no longer permitted to send messages")
				return
			}

			s.log.Printf("failed to persist message from user %d in room %s: %v", s.user.Id, s.room.ExternalId, err)
			s.shutdown(CloseInternalServerErr, "failed to persist message")
			return
		}

		s.registry.Broadcast(s.room.ExternalId, NewChatMessageFrame(msg))
	}
}
