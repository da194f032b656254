package rpc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/techspeque/specstudio/internal/event"
	"github.com/techspeque/specstudio/internal/logging"
)

const (
	writeTimeout = 10 * time.Second
	// sendBuffer is how many frames a client may lag before it is dropped
	sendBuffer = 256
)

// Server bridges a Handler and the event stream onto websocket clients.
// It implements event.Sink; every emitted event is broadcast.
type Server struct {
	handler        *Handler
	logger         *logging.Logger
	originPatterns []string

	mu      sync.RWMutex
	clients map[string]*client
	wg      sync.WaitGroup
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
	once   sync.Once
}

// NewServer creates a Server. originPatterns are host patterns accepted
// from browser-style clients; requests without an Origin are always allowed.
func NewServer(handler *Handler, logger *logging.Logger, originPatterns []string) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Server{
		handler:        handler,
		logger:         logger.WithComponent("ws"),
		originPatterns: originPatterns,
		clients:        make(map[string]*client),
	}
}

// Emit broadcasts ev to every connected client. Clients whose send queue
// is full are disconnected rather than blocking the producer.
func (s *Server) Emit(ev event.StreamEvent) {
	data, err := json.Marshal(Frame{Type: FrameEvent, Channel: event.Channel, Payload: &ev})
	if err != nil {
		s.logger.Error("failed to encode event", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Warn("client too slow, dropping", "client_id", c.id)
			c.close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		cancel: cancel,
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("client connected", "client_id", c.id, "remote", r.RemoteAddr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writePump(ctx, c)
	}()

	s.readPump(ctx, c)

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	s.logger.Info("client disconnected", "client_id", c.id)
}

func (c *client) close() {
	c.once.Do(c.cancel)
}

func (s *Server) readPump(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
				s.logger.Debug("read failed", "client_id", c.id, "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.Warn("malformed request", "client_id", c.id, "error", err)
			continue
		}

		// Calls run concurrently so a slow spawn never blocks input or cancel.
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.respond(ctx, c, req)
		}()
	}
}

func (s *Server) respond(ctx context.Context, c *client, req Request) {
	result, err := s.handler.Dispatch(ctx, req.Method, req.Params)
	frame := Frame{Type: FrameResponse, ID: req.ID, Result: result, Error: errorPayload(err)}
	if err != nil {
		s.logger.Info("request failed", "client_id", c.id, "method", req.Method, "error", err)
	}

	data, mErr := json.Marshal(frame)
	if mErr != nil {
		s.logger.Error("failed to encode response", "error", mErr)
		return
	}
	select {
	case c.send <- data:
	case <-ctx.Done():
	}
}

func (s *Server) writePump(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug("write failed", "client_id", c.id, "error", err)
				c.close()
				return
			}
		}
	}
}

// ListenAndServe serves websocket clients at addr until ctx ends, then
// closes every connection.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.mu.RLock()
	for _, c := range s.clients {
		c.close()
	}
	s.mu.RUnlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	return err
}
