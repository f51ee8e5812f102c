package spectate

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/brensch/lanebattle/replay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the live hub and the replay directory over HTTP.
type Server struct {
	hub       *Hub
	replayDir string
	index     *Index
	log       zerolog.Logger
}

func NewServer(hub *Hub, replayDir string, log zerolog.Logger) *Server {
	return &Server{
		hub:       hub,
		replayDir: replayDir,
		index:     NewIndex(replayDir),
		log:       log,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/live", s.handleLive)
	mux.HandleFunc("/api/matches", s.handleMatches)
	mux.HandleFunc("/api/replays", s.handleReplays)
	mux.HandleFunc("/api/replays/", s.handleReplay)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws upgrade")
		return
	}
	client := NewClient(s.hub, conn)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	last := s.hub.Last()
	if last == nil {
		http.Error(w, "no match running", http.StatusNotFound)
		return
	}
	var env Envelope
	if err := json.Unmarshal(last, &env); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(env.Payload)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	matches, err := s.index.Matches(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, matches)
}

func (s *Server) handleReplays(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	names, err := replay.List(s.replayDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, names)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/replays/")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid replay name", http.StatusBadRequest)
		return
	}
	reps, err := replay.Load(filepath.Join(s.replayDir, name))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, reps)
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
