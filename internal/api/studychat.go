package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/studychat/internal/config"
	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/rooms"
	"github.com/npezzotti/studychat/internal/server"
	"github.com/npezzotti/studychat/internal/stats"
)

type StudyChatApp struct {
	log            *log.Logger
	db             database.StudyChatRepository
	rooms          *rooms.RoomService
	registry       *server.ConnectionRegistry
	stats          stats.StatsProvider
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewStudyChatApp(logger *log.Logger, db database.StudyChatRepository, roomService *rooms.RoomService,
	registry *server.ConnectionRegistry, statsProvider stats.StatsProvider, mux *http.ServeMux, cfg *config.Config) *StudyChatApp {
	s := &StudyChatApp{
		log:            logger,
		db:             db,
		rooms:          roomService,
		registry:       registry,
		stats:          statsProvider,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("/api/account", s.authMiddleware(s.account))

	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.HandleFunc("GET /api/rooms/{id}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("PUT /api/rooms/{id}", s.authMiddleware(s.updateRoom))
	mux.HandleFunc("DELETE /api/rooms/{id}", s.authMiddleware(s.deleteRoom))

	mux.HandleFunc("GET /api/rooms/{id}/members", s.authMiddleware(s.listMembers))
	mux.HandleFunc("PUT /api/rooms/{id}/members/{userId}", s.authMiddleware(s.setMemberRole))
	mux.HandleFunc("DELETE /api/rooms/{id}/members/{userId}", s.authMiddleware(s.removeMember))

	mux.HandleFunc("POST /api/rooms/{id}/join-requests", s.authMiddleware(s.createJoinRequest))
	mux.HandleFunc("GET /api/rooms/{id}/join-requests", s.authMiddleware(s.listJoinRequests))
	mux.HandleFunc("POST /api/rooms/{id}/join-requests/{requestId}", s.authMiddleware(s.processJoinRequest))

	mux.HandleFunc("POST /api/rooms/{id}/messages", s.authMiddleware(s.sendMessage))
	mux.HandleFunc("GET /api/rooms/{id}/messages", s.authMiddleware(s.listMessages))
	mux.HandleFunc("DELETE /api/rooms/{id}/messages/{messageId}", s.authMiddleware(s.deleteMessage))

	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /healthz", s.healthz)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *StudyChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *StudyChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *StudyChatApp) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check failed: %v", err)
		s.writeJson(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}
