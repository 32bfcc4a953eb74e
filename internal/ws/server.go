// Package ws carries arena events over gorilla websockets. Each client gets
// one read loop that feeds the arena and one write loop that drains a
// bounded send queue.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"wager-arena/internal/arena"
	"wager-arena/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendQueueSize  = 32
)

// Arena is the part of the arena coordinator the transport drives.
type Arena interface {
	Connect(conn *arena.Connection)
	Handle(ctx context.Context, conn *arena.Connection, typ string, data json.RawMessage)
	Disconnect(ctx context.Context, conn *arena.Connection)
}

type Server struct {
	arena          Arena
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool
}

func NewServer(a Arena, allowedOrigins []string) *Server {
	s := &Server{arena: a, allowedOrigins: map[string]bool{}}
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			s.allowedOrigins[strings.ToLower(o)] = true
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin allows any origin when no allow-list is configured, and
// always allows clients that send no Origin header (bots, CLIs).
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.allowedOrigins[strings.ToLower(origin)]
}

// Identity is resolved upstream; the arena trusts what it is given.
func identityFromRequest(r *http.Request) (userID, userName string) {
	userID = strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	userName = strings.TrimSpace(r.Header.Get("X-User-Name"))
	if userName == "" {
		userName = strings.TrimSpace(r.URL.Query().Get("user_name"))
	}
	return userID, userName
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, userName := identityFromRequest(r)
	if userID == "" {
		metricRejectedTotal.Add(1)
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metricRejectedTotal.Add(1)
		log.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	metricUpgradesTotal.Add(1)

	c := newClient(conn)
	c.arenaConn = arena.NewConnection(store.NewPrefixedID("conn"), userID, userName, c)
	s.arena.Connect(c.arenaConn)
	metricClientsConnected.Add(1)

	go c.writeLoop()
	s.readLoop(r.Context(), c)
}

func (s *Server) readLoop(ctx context.Context, c *Client) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		s.arena.Disconnect(ctx, c.arenaConn)
		c.close()
		metricClientsConnected.Add(-1)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn_id", c.arenaConn.ID).Msg("websocket read failed")
			}
			return
		}
		metricFramesIn.Add(1)
		env, err := decodeEnvelope(msg)
		if err != nil || env.Type == "" {
			metricMalformedFrames.Add(1)
			c.Send(arena.ErrorEvent(arena.ErrInvalidPayload))
			continue
		}
		s.arena.Handle(ctx, c.arenaConn, env.Type, env.Data)
	}
}

// Client is one websocket peer. It implements arena.Sender.
type Client struct {
	conn      *websocket.Conn
	arenaConn *arena.Connection

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn, send: make(chan []byte, sendQueueSize)}
}

// Send queues ev without blocking. A slow client loses events rather than
// stalling the session that broadcasts to it.
func (c *Client) Send(ev arena.Event) bool {
	msg, err := encodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("event", ev.Type).Msg("encode event failed")
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		metricSendQueueFull.Add(1)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Debug().Err(err).Msg("websocket write failed")
				}
				return
			}
			metricFramesOut.Add(1)
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
