package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
)

// HostFactory builds the host that serves one peer connection. Each
// connection gets its own host so a disconnect disposes exactly the
// components that peer attached.
type HostFactory func(peer mixed.RuntimeID) *bridge.Host

// Server accepts peer runtimes over WebSocket.
type Server struct {
	local    mixed.RuntimeID
	newHost  HostFactory
	config   *Config
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	conns     map[string]*Conn
	onConnect []func(*Conn)
	closed    bool
}

// NewServer creates a server for the local runtime. newHost may be nil, in
// which case peers can call nothing but callbacks are still refused.
func NewServer(local mixed.RuntimeID, newHost HostFactory, config *Config) *Server {
	config = config.Clone()
	s := &Server{
		local:   local,
		newHost: newHost,
		config:  config,
		conns:   make(map[string]*Conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     config.CheckOrigin,
	}
	return s
}

// OnConnect registers fn to run after each successful handshake, before
// the peer runtime is reported as started.
func (s *Server) OnConnect(fn func(*Conn)) {
	s.mu.Lock()
	s.onConnect = append(s.onConnect, fn)
	s.mu.Unlock()
}

// Routes returns a router serving the WebSocket endpoint at path.
func (s *Server) Routes(path string) chi.Router {
	r := chi.NewRouter()
	r.Get(path, s.ServeHTTP)
	return r
}

// ServeHTTP upgrades the request, exchanges Hellos and serves the
// connection until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := s.config.logger()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		http.Error(w, "server closed", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}
	if s.config.MaxMessageSize > 0 {
		ws.SetReadLimit(s.config.MaxMessageSize)
	}

	hello, err := readHello(ws, s.config.HandshakeTimeout, s.local.Other())
	if err != nil {
		logger.Warn("handshake failed", "error", err, "remote", r.RemoteAddr)
		var em *protocol.ErrorMessage
		if errors.As(err, &em) {
			writeRaw(ws, s.config.WriteTimeout, protocol.FrameError, protocol.EncodeErrorMessage(em))
		}
		ws.Close()
		return
	}

	id := newConnID()
	if err := writeRaw(ws, s.config.WriteTimeout, protocol.FrameHandshake,
		protocol.EncodeHello(protocol.NewHello(s.local, id))); err != nil {
		logger.Warn("hello write failed", "error", err)
		ws.Close()
		return
	}

	var host *bridge.Host
	if s.newHost != nil {
		host = s.newHost(hello.Runtime)
	}
	conn := newConn(ws, host, s.local, hello.Runtime, id, s.config)

	s.mu.Lock()
	s.conns[id] = conn
	hooks := append([]func(*Conn){}, s.onConnect...)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
	}()

	conn.logger.Info("peer connected", "version", hello.Version)
	for _, fn := range hooks {
		fn(conn)
	}
	if s.config.Starts != nil {
		s.config.Starts.Started(hello.Runtime)
	}

	err = conn.Serve(context.WithoutCancel(r.Context()))
	conn.logger.Info("peer disconnected", "error", err)
}

// Conn returns the live connection with the given ID.
func (s *Server) Conn(id string) (*Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[id]
	return c, ok
}

// Len returns the number of live connections.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Close refuses new connections and closes the live ones.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return nil
}

func newConnID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
