// Package spectate streams live match snapshots to websocket spectators and
// serves recorded replays over HTTP.
package spectate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/replay"
)

// Message types sent to spectators.
const (
	MsgMatch    = "match"
	MsgSnapshot = "snapshot"
)

// Envelope is the wire format of every spectator message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newEnvelope(typ string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Payload: data})
}

// Hub fans snapshots out to every connected spectator. Observe never blocks:
// a client whose buffer is full is disconnected.
type Hub struct {
	mu         sync.Mutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	last       []byte
	match      []byte
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run services client registration until ctx is done, then disconnects
// everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			// Late joiners get the current match and its latest turn.
			for _, msg := range [][]byte{h.match, h.last} {
				if msg != nil {
					h.sendLocked(client, msg)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("clients", n).Msg("spectator joined")

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.dropLocked(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Begin announces a new match and forgets the previous match's last turn.
func (h *Hub) Begin(meta replay.Metadata) {
	data, err := newEnvelope(MsgMatch, meta)
	if err != nil {
		h.log.Error().Err(err).Msg("encode match")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.match, h.last = data, nil
	h.broadcastLocked(data)
}

func (h *Hub) Observe(s game.Snapshot) {
	data, err := newEnvelope(MsgSnapshot, s)
	if err != nil {
		h.log.Error().Err(err).Int("turn", s.Turn).Msg("encode snapshot")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	h.broadcastLocked(data)
}

// Last returns the most recent snapshot message, or nil.
func (h *Hub) Last() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcastLocked(data []byte) {
	for client := range h.clients {
		h.sendLocked(client, data)
	}
}

func (h *Hub) sendLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn().Str("remote", client.remote).Msg("spectator too slow, dropping")
		h.dropLocked(client)
	}
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}
