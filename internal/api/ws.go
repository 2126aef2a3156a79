package api

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/server"
)

// serveWs upgrades the connection and binds it to one room. The connection
// is upgraded before credentials are checked so browser clients receive a
// close code instead of an opaque handshake failure.
func (s *StudyChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	userId, err := s.extractUserIdFromToken(bearerToken(r))
	if err != nil {
		s.log.Printf("ws auth failed: %v", err)
		closeConn(conn, server.ClosePolicyViolation, "authentication failed")
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		s.log.Printf("ws account lookup failed: %v", err)
		closeConn(conn, server.ClosePolicyViolation, "authentication failed")
		return
	}

	room, err := s.rooms.Room(r.URL.Query().Get("room_id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			closeConn(conn, server.CloseUnsupportedData, "room not found")
		} else {
			s.log.Printf("ws room lookup failed: %v", err)
			closeConn(conn, server.CloseInternalServerErr, "internal error")
		}
		return
	}

	actor := userView(user)
	if !s.rooms.CanView(actor, room) {
		closeConn(conn, server.ClosePolicyViolation, "not a member of this room")
		return
	}

	session := server.NewSession(actor, room, conn, s.registry, s.rooms, s.log)
	go session.Run()
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	conn.Close()
}
