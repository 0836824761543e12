package render

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/beka-birhanu/vinom-tiles/growth"
	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 256
	writeTimeout     = 5 * time.Second
)

type subscriber struct {
	out chan []byte
}

// Hub streams tile views to websocket viewers. Late viewers first receive every view
// rendered so far, then live views.
type Hub struct {
	upgrader    websocket.Upgrader
	history     [][]byte
	subscribers map[*subscriber]struct{}
	closed      bool
	logger      i.Logger
	mu          sync.Mutex
}

// NewHub creates a Hub logging through logger.
func NewHub(logger i.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger,
	}
}

// RenderTile encodes v and pushes it to every viewer. Viewers that fall behind lose frames.
func (h *Hub) RenderTile(v growth.TileView) {
	frame, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(fmt.Sprintf("encoding tile view (%d,%d): %s", v.X, v.Y, err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.history = append(h.history, frame)
	for s := range h.subscribers {
		select {
		case s.out <- frame:
		default:
			h.logger.Warning(fmt.Sprintf("viewer too slow, dropped frame for (%d,%d)", v.X, v.Y))
		}
	}
}

// Subscribers returns the number of connected viewers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and streams frames until the viewer leaves or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warning(fmt.Sprintf("websocket upgrade: %s", err))
		return
	}
	defer conn.Close()

	sub := &subscriber{out: make(chan []byte, subscriberBuffer)}

	h.mu.Lock()
	backlog := append([][]byte(nil), h.history...)
	closed := h.closed
	if !closed {
		h.subscribers[sub] = struct{}{}
	}
	h.mu.Unlock()

	// A finished run is replayed in full, then closed.
	if closed {
		for _, frame := range backlog {
			if err := write(conn, frame); err != nil {
				return
			}
		}
		closeConn(conn, websocket.CloseNormalClosure, "run finished")
		return
	}
	defer h.remove(sub)

	// Reader loop only detects the viewer going away.
	left := make(chan struct{})
	go func() {
		defer close(left)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, frame := range backlog {
		if err := write(conn, frame); err != nil {
			return
		}
	}

	for {
		select {
		case <-left:
			return
		case frame, ok := <-sub.out:
			if !ok {
				closeConn(conn, websocket.CloseNormalClosure, "run finished")
				return
			}
			if err := write(conn, frame); err != nil {
				return
			}
		}
	}
}

// Close disconnects every viewer and stops accepting frames. Viewers connecting
// afterwards still receive the frames rendered before Close.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subscribers {
		close(s.out)
		delete(h.subscribers, s)
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, s)
}

func write(conn *websocket.Conn, frame []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
