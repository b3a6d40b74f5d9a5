// Package server exposes rooms over HTTP: a websocket endpoint per room, a
// room occupancy query used for room discovery, and an optional guest-token
// endpoint.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/benevolentblend/cards/internal/auth"
	"github.com/benevolentblend/cards/internal/cache"
	"github.com/benevolentblend/cards/internal/database"
	"github.com/benevolentblend/cards/internal/game"
)

const defaultDisplayName = "User"

type Options struct {
	Logger  *logrus.Logger
	Auth    *auth.Service
	History *cache.Publisher
	Results *database.Store
}

// Server owns the room registry. Rooms are created lazily on the first
// websocket connection to their id; occupancy queries never create rooms.
type Server struct {
	log     *logrus.Logger
	auth    *auth.Service
	history *cache.Publisher
	results *database.Store

	mu    sync.Mutex
	rooms map[string]*game.Room
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		log:     logger,
		auth:    opts.Auth,
		history: opts.History,
		results: opts.Results,
		rooms:   make(map[string]*game.Room),
	}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /party/{roomID}", s.handleConnect)
	mux.HandleFunc("POST /party/{roomID}", s.handleRoomQuery)
	mux.HandleFunc("POST /auth/guest", s.handleGuestToken)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// room returns the live room for id, creating it on first use.
func (s *Server) room(id string) *game.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r
	}
	r := game.NewRoom(id, game.Options{
		Logger:  s.log,
		History: s.history,
		Results: s.results,
	})
	s.rooms[id] = r
	return r
}

// peekRoom returns the room without creating it.
func (s *Server) peekRoom(id string) *game.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[id]
}

// handleRoomQuery answers room discovery probes. The only supported message
// is "count", which reports the room's live connection count (zero for rooms
// that were never created).
func (s *Server) handleRoomQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Message != "count" {
		http.Error(w, "unsupported message", http.StatusBadRequest)
		return
	}
	count := 0
	if room := s.peekRoom(r.PathValue("roomID")); room != nil {
		count = room.Count()
	}
	writeJSON(w, map[string]int{"count": count})
}

// handleGuestToken mints a signed guest identity for the requested display
// name.
func (s *Server) handleGuestToken(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		http.Error(w, "guest tokens disabled", http.StatusServiceUnavailable)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	name := body.Name
	if name == "" {
		name = defaultDisplayName
	}
	id := uuid.NewString()
	token, err := s.auth.IssueGuestToken(id, name)
	if err != nil {
		s.log.WithError(err).Error("failed issuing guest token")
		http.Error(w, "token issuance failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"id": id, "name": name, "token": token})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
