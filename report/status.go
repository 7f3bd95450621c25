package report

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"stepcore/motion"
)

// Snapshot is one point-in-time status update pushed to subscribers.
type Snapshot struct {
	PositionMM  [motion.NumAxes]float64 `json:"position_mm"`
	QueueDepth  int                     `json:"queue_depth"`
	EndstopHit  bool                    `json:"endstop_hit"`
	EndstopBits uint32                  `json:"endstop_bits"`
}

// StatusSource is whatever the broadcaster polls each tick; a thin
// adapter over motion.Engine plus the block queue.
type StatusSource interface {
	Snapshot() Snapshot
}

// StatusServer streams periodic Snapshots to WebSocket subscribers,
// grounded on AndySze-klipper's moonraker.Server/WSClient pump pair —
// a per-client buffered send channel plus a ping ticker, rather than a
// broadcast fan-out lock held during I/O.
type StatusServer struct {
	source   StatusSource
	upgrader websocket.Upgrader
	interval time.Duration

	mu      sync.Mutex
	clients map[*statusClient]struct{}
	nextID  int64
}

type statusClient struct {
	id     int64
	conn   *websocket.Conn
	sendCh chan Snapshot
	done   chan struct{}
}

// NewStatusServer builds a broadcaster that polls source every interval.
func NewStatusServer(source StatusSource, interval time.Duration) *StatusServer {
	return &StatusServer{
		source:   source,
		interval: interval,
		clients:  make(map[*statusClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the http.HandlerFunc to mount at e.g. "/status".
func (s *StatusServer) Handler() http.HandlerFunc {
	return s.handleWebSocket
}

// Run polls the status source and broadcasts snapshots until ctx-like
// stop channel closes.
func (s *StatusServer) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.broadcast(s.source.Snapshot())
		case <-stop:
			return
		}
	}
}

func (s *StatusServer) broadcast(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.sendCh <- snap:
		case <-c.done:
		default:
			log.Printf("stepcore: dropping status update to client %d (channel full)", c.id)
		}
	}
}

func (s *StatusServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stepcore: websocket upgrade error: %v", err)
		return
	}
	client := &statusClient{
		id:     atomic.AddInt64(&s.nextID, 1),
		conn:   conn,
		sendCh: make(chan Snapshot, 8),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	go s.writePump(client)
	go s.readPump(client)
}

func (s *StatusServer) readPump(c *statusClient) {
	defer s.removeClient(c)
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *StatusServer) writePump(c *statusClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case snap, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *StatusServer) removeClient(c *statusClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.done)
	}
}
