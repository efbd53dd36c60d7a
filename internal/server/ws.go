package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/internal/frame"
	"github.com/ayusman/evergreen/internal/interaction"
	"github.com/ayusman/evergreen/internal/logging"
)

const (
	// sendBuffer is how many frames may queue for a slow renderer before
	// newer frames are dropped for it.
	sendBuffer = 4

	writeWait = 5 * time.Second

	// maxMessageSize bounds inbound landmark messages.
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types on the frame socket.
const (
	MessageStatic    = "static"
	MessageFrame     = "frame"
	MessageLandmarks = "landmarks"
)

// FrameSource is the display the hub feeds renderers from.
type FrameSource interface {
	Static() frame.Static
	AddSink(s frame.Sink)
	RemoveSink(s frame.Sink)
	OnLandmarks(hands []detector.HandLandmarks) interaction.State
}

type staticMessage struct {
	Type   string       `json:"type"`
	Static frame.Static `json:"static"`
}

type frameMessage struct {
	Type  string       `json:"type"`
	Frame *frame.Frame `json:"frame"`
}

// inboundMessage is what renderers may send. Browser-side detectors post
// {"type":"landmarks","hands":[...]} in the MediaPipe service format.
type inboundMessage struct {
	Type  string                 `json:"type"`
	Hands []detector.ServiceHand `json:"hands"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// FrameHub fans published frames out to every connected renderer over
// WebSocket and feeds landmarks sent by renderers back into the display.
type FrameHub struct {
	source  FrameSource
	log     logging.Logger
	clients map[*client]bool
	mu      sync.RWMutex
}

// NewFrameHub creates a hub and registers it as a sink of source.
func NewFrameHub(source FrameSource, log logging.Logger) *FrameHub {
	h := &FrameHub{
		source:  source,
		log:     logging.OrNop(log),
		clients: make(map[*client]bool),
	}
	source.AddSink(h)
	return h
}

// ServeHTTP handles WebSocket upgrade requests. The static upload is sent
// before any frame.
func (h *FrameHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	static, err := json.Marshal(staticMessage{Type: MessageStatic, Static: h.source.Static()})
	if err != nil {
		h.log.Errorf("encode static upload: %v", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, static); err != nil {
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	defer h.remove(c)

	go c.writeLoop()
	h.readLoop(c)
}

// Publish implements frame.Sink.
func (h *FrameHub) Publish(f *frame.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(frameMessage{Type: MessageFrame, Frame: f})
	if err != nil {
		h.log.Errorf("encode frame %d: %v", f.Tick, err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Debugf("Renderer %s is behind, dropping frame %d", c.conn.RemoteAddr(), f.Tick)
		}
	}
}

// Clients returns the number of connected renderers.
func (h *FrameHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops receiving frames and disconnects every renderer.
func (h *FrameHub) Close() {
	h.source.RemoveSink(h)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *FrameHub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *FrameHub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readLoop consumes renderer messages until the connection fails.
func (h *FrameHub) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debugf("Ignoring malformed message from %s: %v", c.conn.RemoteAddr(), err)
			continue
		}

		switch msg.Type {
		case MessageLandmarks:
			h.source.OnLandmarks(toLandmarks(msg.Hands))
		default:
			h.log.Debugf("Ignoring %q message from %s", msg.Type, c.conn.RemoteAddr())
		}
	}
}

// toLandmarks drops hands with fewer than 21 points.
func toLandmarks(hands []detector.ServiceHand) []detector.HandLandmarks {
	out := make([]detector.HandLandmarks, 0, len(hands))
	for _, hand := range hands {
		if len(hand.Points) < detector.NumLandmarks {
			continue
		}
		out = append(out, hand.Landmarks())
	}
	return out
}

func (c *client) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}
