package main

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"swing-trainer/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from a browser client.
	maxClientMessageSize = 4096

	// Buffered state frames per client. Slow clients drop frames rather
	// than stall the engine's frame loop.
	clientSendBuffer = 32
)

func (s *Server) newUpgrader() websocket.Upgrader {
	allowed := make(map[string]bool, len(s.config.AllowedOrigins))
	for _, origin := range s.config.AllowedOrigins {
		allowed[origin] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Sensor firmware sends no Origin header.
				return true
			}
			if allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return u.Host == r.Host
		},
	}
}

// StateMessage is pushed to every browser client whenever the observable
// state changes (including once per frame while a pitch is in flight)
type StateMessage struct {
	Type  string        `json:"type"`
	State StateResponse `json:"state"`
}

// ClientCommand is a control message from a browser client; the WebSocket
// carries the same four entry points as the HTTP API
type ClientCommand struct {
	Type   string          `json:"type"` // "pitch", "swing", "reset", "config"
	Config json.RawMessage `json:"config,omitempty"`
}

// Hub fans observable-state updates out to the connected browser clients
type Hub struct {
	server      *Server
	clients     map[*wsClient]bool
	clientCount atomic.Int32
	register    chan *wsClient
	unregister  chan *wsClient
	broadcast   chan []byte
	stop        chan struct{}
}

// Clients returns the number of connected browser clients
func (h *Hub) Clients() int {
	return int(h.clientCount.Load())
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		stop:       make(chan struct{}),
	}
}

// Run owns the client set. All register/unregister/broadcast traffic is
// serialized here; nothing else touches h.clients.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.clientCount.Store(int32(len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientCount.Store(int32(len(h.clients)))

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client cannot keep up; drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.clientCount.Store(int32(len(h.clients)))

		case <-h.stop:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientCount.Store(0)
			return
		}
	}
}

// Stop disconnects every client and ends the Run loop
func (h *Hub) Stop() {
	close(h.stop)
}

// BroadcastState pushes a state frame to all clients. Never blocks: if the
// hub is saturated the frame is dropped, a fresher one follows shortly.
func (h *Hub) BroadcastState(snap models.Snapshot) {
	state := StateResponse{Snapshot: snap}
	if h.server != nil && h.server.sensors != nil {
		state.SensorConnected = h.server.sensors.Connected()
		state.Sensors = h.server.sensors.Devices()
	}

	payload, err := json.Marshal(StateMessage{Type: "state", State: state})
	if err != nil {
		log.Printf("Failed to marshal state message: %v", err)
		return
	}

	select {
	case h.broadcast <- payload:
	default:
	}
}

// wsStateHandler upgrades a browser connection and attaches it to the hub
func (s *Server) wsStateHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := s.newUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{hub: s.hub, conn: conn, send: make(chan []byte, clientSendBuffer)}
	select {
	case s.hub.register <- client:
	case <-s.hub.stop:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(s)

	// Seed the new client with the current state.
	s.hub.BroadcastState(s.engine.Snapshot())
}

// wsSensorHandler upgrades a sensor device connection and hands it to the
// sensor bridge
func (s *Server) wsSensorHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := s.newUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Sensor upgrade failed: %v", err)
		return
	}

	go s.sensors.HandleConn(conn)
}

func (c *wsClient) readPump(s *Server) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxClientMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Client read error: %v", err)
			}
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.Printf("Client sent malformed command: %v", err)
			continue
		}
		s.dispatchCommand(cmd)
	}
}

// dispatchCommand routes a browser command to the engine entry points
func (s *Server) dispatchCommand(cmd ClientCommand) {
	switch cmd.Type {
	case "pitch":
		appMetrics.IncrementPitches()
		s.engine.RequestPitch()

	case "swing":
		if s.debounce.Allow(time.Now()) {
			s.acceptSwing()
		}

	case "reset":
		s.engine.Reset()

	case "config":
		cfg := s.engine.Snapshot().Config
		if err := json.Unmarshal(cmd.Config, &cfg); err != nil {
			log.Printf("Client sent malformed config: %v", err)
			return
		}
		s.engine.UpdateConfig(cfg)

	default:
		log.Printf("Client sent unknown command type %q", cmd.Type)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
