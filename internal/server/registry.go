// Package server owns the live WebSocket surface: a process-local registry
// of open sessions keyed by room and user, and the per-connection protocol
// handler.
package server

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/npezzotti/studychat/internal/stats"
)

// ConnectionRegistry tracks at most one session per (room, user). All
// operations are atomic with respect to that key.
type ConnectionRegistry struct {
	log   *log.Logger
	stats stats.StatsProvider

	mu    sync.Mutex
	rooms map[string]map[int]*Session
}

func NewConnectionRegistry(logger *log.Logger, statsProvider stats.StatsProvider) *ConnectionRegistry {
	return &ConnectionRegistry{
		log:   logger,
		stats: statsProvider,
		rooms: make(map[string]map[int]*Session),
	}
}

// Connect registers the session under (roomId, userId). A prior session for
// the same key is replaced and closed so a user holds one socket per room.
func (r *ConnectionRegistry) Connect(roomId string, userId int, s *Session) {
	r.mu.Lock()
	sessions, ok := r.rooms[roomId]
	if !ok {
		sessions = make(map[int]*Session)
		r.rooms[roomId] = sessions
	}

	prev := sessions[userId]
	sessions[userId] = s
	r.mu.Unlock()

	if prev != nil {
		// The replaced session's Disconnect is a no-op, so the gauge only
		// moves when the key is new.
		r.log.Printf("replacing session for user %d in room %s", userId, roomId)
		prev.Close(ClosePolicyViolation, "superseded by a new connection")
		return
	}

	r.stats.Incr(stats.NumConnections)
}

// Disconnect removes the session if it is still the registered one for its
// key, and garbage-collects the room entry when it empties. A session that
// was already replaced is left alone.
func (r *ConnectionRegistry) Disconnect(roomId string, userId int, s *Session) {
	r.mu.Lock()
	sessions, ok := r.rooms[roomId]
	if !ok || sessions[userId] != s {
		r.mu.Unlock()
		return
	}

	delete(sessions, userId)
	if len(sessions) == 0 {
		delete(r.rooms, roomId)
	}
	r.mu.Unlock()

	r.stats.Decr(stats.NumConnections)
}

// Unicast delivers a frame to one user in a room, if connected. Delivery is
// best-effort.
func (r *ConnectionRegistry) Unicast(roomId string, userId int, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		r.log.Printf("failed to marshal frame for room %s: %v", roomId, err)
		return
	}

	r.mu.Lock()
	s := r.rooms[roomId][userId]
	r.mu.Unlock()

	if s == nil {
		return
	}

	if !s.queue(payload) {
		r.log.Printf("dropped unicast to user %d in room %s", userId, roomId)
	}
}

// Broadcast delivers a frame to every session registered in the room at call
// time. A slow or dead recipient never affects the others.
func (r *ConnectionRegistry) Broadcast(roomId string, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		r.log.Printf("failed to marshal frame for room %s: %v", roomId, err)
		return
	}

	r.mu.Lock()
	recipients := make([]*Session, 0, len(r.rooms[roomId]))
	for _, s := range r.rooms[roomId] {
		recipients = append(recipients, s)
	}
	r.mu.Unlock()

	for _, s := range recipients {
		if !s.queue(payload) {
			r.log.Printf("dropped broadcast to user %d in room %s", s.user.Id, roomId)
		}
	}
}

// Sessions snapshots the registered sessions in a room. Used by the idle
// sweeper to probe liveness without holding the registry lock.
func (r *ConnectionRegistry) Sessions(roomId string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.rooms[roomId]))
	for _, s := range r.rooms[roomId] {
		sessions = append(sessions, s)
	}

	return sessions
}

// RoomIds snapshots the rooms with at least one live session.
func (r *ConnectionRegistry) RoomIds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}

	return ids
}

// NumSessions reports the number of live sessions in a room.
func (r *ConnectionRegistry) NumSessions(roomId string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms[roomId])
}
