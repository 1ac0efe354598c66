package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"chatroom/internal/logger"
	"chatroom/internal/record"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 1 << 20
	sendBufferSize = 16
)

// Server hosts one record for any number of websocket clients.
type Server struct {
	store    record.Store
	log      *logger.LogEntry
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*peer
	// applyMu keeps each patch's Set+Sync together.
	applyMu sync.Mutex
}

type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (p *peer) close() {
	p.once.Do(func() { close(p.send) })
}

// NewServer creates a relay in front of store.
func NewServer(store record.Store, log *logger.LogEntry) *Server {
	if log == nil {
		log = logger.Named("relay")
	}
	return &Server{
		store: store,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: map[string]*peer{},
	}
}

var ginModeOnce sync.Once

// Handler serves the websocket endpoint at /ws and a JSON status at /healthz.
func (s *Server) Handler() http.Handler {
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/ws", func(c *gin.Context) {
		s.handleWebSocket(c.Writer, c.Request)
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"clients": s.ClientCount(),
			"keys":    len(s.store.Snapshot()),
		})
	})
	return router
}

// Run forwards store snapshots to every client until ctx is done or the
// store subscription closes.
func (s *Server) Run(ctx context.Context) {
	sub, cancel := s.store.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			s.disconnectAll()
			return
		case snap, ok := <-sub:
			if !ok {
				s.disconnectAll()
				return
			}
			s.broadcast(snap)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade error: %v", err)
		return
	}
	p := &peer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	// Snapshot and registration happen under mu so no broadcast can slip
	// between them.
	s.mu.Lock()
	hello, err := EncodeFrame(Frame{Type: FrameSnapshot, Fields: s.store.Snapshot()})
	if err != nil {
		s.mu.Unlock()
		s.log.Warnf("encode snapshot: %v", err)
		conn.Close()
		return
	}
	p.send <- hello
	s.clients[p.id] = p
	s.mu.Unlock()
	s.log.WithField("client", p.id).Info("client connected")

	go s.writePump(p)
	go s.readPump(p)
}

func (s *Server) readPump(p *peer) {
	defer func() {
		s.drop(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxFrameSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithField("client", p.id).Warnf("read error: %v", err)
			}
			return
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			s.log.WithField("client", p.id).Warnf("bad frame: %v", err)
			continue
		}
		if frame.Type != FramePatch {
			continue
		}
		s.apply(context.Background(), p.id, frame.Fields)
	}
}

func (s *Server) apply(ctx context.Context, origin string, fields record.Record) {
	if len(fields) == 0 {
		return
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	for k, v := range fields {
		s.store.Set(k, v)
	}
	if err := s.store.Sync(ctx); err != nil {
		s.log.WithField("client", origin).Warnf("sync patch: %v", err)
	}
}

func (s *Server) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) broadcast(snap record.Record) {
	data, err := EncodeFrame(Frame{Type: FrameSnapshot, Fields: snap})
	if err != nil {
		s.log.Warnf("encode snapshot: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.clients {
		select {
		case p.send <- data:
		default:
			s.log.WithField("client", id).Warn("client too slow, disconnecting")
			delete(s.clients, id)
			p.close()
		}
	}
}

func (s *Server) drop(p *peer) {
	s.mu.Lock()
	if _, ok := s.clients[p.id]; ok {
		delete(s.clients, p.id)
		p.close()
		s.log.WithField("client", p.id).Info("client disconnected")
	}
	s.mu.Unlock()
}

func (s *Server) disconnectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.clients {
		delete(s.clients, id)
		p.close()
	}
}
