package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsSendBuffer   = 256
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingEvery    = wsPongTimeout * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced on the REST routes
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans stream messages out to websocket sessions by channel.
// Slow sessions drop messages instead of blocking the kernel.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*session]struct{}
	closed   bool
	nextID   atomic.Uint64
	log      *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{sessions: make(map[*session]struct{}), log: log}
}

func (h *Hub) join(conn *websocket.Conn) *session {
	s := &session{
		id:   "ws-" + strconv.FormatUint(h.nextID.Add(1), 10),
		conn: conn,
		out:  make(chan []byte, wsSendBuffer),
		subs: make(map[string]bool),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.out)
		return s
	}
	h.sessions[s] = struct{}{}
	h.log.Infow("ws_client_connected", "client", s.id, "remote", conn.RemoteAddr().String(), "total", len(h.sessions))
	return s
}

func (h *Hub) leave(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	close(s.out)
	h.log.Infow("ws_client_disconnected", "client", s.id, "total", len(h.sessions))
}

// Close ends every session; later connections are closed immediately
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.sessions {
		delete(h.sessions, s)
		close(s.out)
	}
}

// BroadcastToChannel sends msg to every session subscribed to channel
func (h *Hub) BroadcastToChannel(channel string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warnw("ws_marshal_failed", "channel", channel, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if !s.subscribed(channel) {
			continue
		}
		select {
		case s.out <- data:
		default:
			h.log.Debugw("ws_message_dropped", "client", s.id, "channel", channel)
		}
	}
}

// Clients returns the number of open sessions
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

type session struct {
	id   string
	conn *websocket.Conn
	out  chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

func (s *session) subscribed(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subs[channel]
}

func (s *session) apply(req WSSubscribeRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch req.Op {
	case "subscribe":
		for _, ch := range req.Channels {
			s.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range req.Channels {
			delete(s.subs, ch)
		}
	default:
		return false
	}
	return true
}

// readLoop applies subscription requests until the peer goes away
func (s *session) readLoop(h *Hub) {
	defer h.leave(s)

	s.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		var req WSSubscribeRequest
		if err := s.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warnw("ws_read_failed", "client", s.id, "err", err)
			}
			return
		}
		if !s.apply(req) {
			h.log.Debugw("ws_unknown_op", "client", s.id, "op", req.Op)
		}
	}
}

// writeLoop drains the outbox and keeps the connection alive with pings
func (s *session) writeLoop() {
	ping := time.NewTicker(wsPingEvery)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	sess := s.hub.join(conn)
	go sess.readLoop(s.hub)
	sess.writeLoop()
}
