package control

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/whatchicken/slack-dm-scraper/internal"
	"nhooyr.io/websocket"
)

// Runner is the part of the controller the server drives
type Runner interface {
	Start(ctx context.Context) internal.Status
	Stop() internal.Status
	Snapshot() internal.Snapshot
	Subscribe(fn func(internal.Event))
}

type outbound struct {
	client *Client
	data   []byte
}

// Server exposes start, stop and status over a websocket and broadcasts run
// events to every connected client
type Server struct {
	runner Runner
	token  string

	clients    map[string]*Client
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	direct     chan outbound

	ctx     context.Context
	ctxMu   sync.RWMutex
	running atomic.Bool
}

// NewServer creates a Server. An empty token disables authentication.
func NewServer(runner Runner, token string) *Server {
	s := &Server{
		runner:     runner,
		token:      token,
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan outbound, 64),
		ctx:        context.Background(),
	}
	runner.Subscribe(s.forward)
	return s
}

// Handler returns the HTTP handler serving /ws
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	return mux
}

func (s *Server) baseContext() context.Context {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.ctx
}

// Run dispatches messages until ctx is done. Runs started by clients live
// as long as ctx.
func (s *Server) Run(ctx context.Context) {
	s.ctxMu.Lock()
	s.ctx = ctx
	s.ctxMu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for _, c := range s.clients {
				close(c.send)
			}
			s.clients = make(map[string]*Client)
			s.mu.Unlock()
			return

		case c := <-s.register:
			s.mu.Lock()
			s.clients[c.id] = c
			s.mu.Unlock()
			go c.writePump(ctx)
			go c.readPump(ctx)
			internal.LogInfo("control client connected: %s (total: %d)", c.id, s.ClientCount())

		case c := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[c.id]; ok {
				delete(s.clients, c.id)
				close(c.send)
			}
			s.mu.Unlock()
			internal.LogInfo("control client disconnected: %s (total: %d)", c.id, s.ClientCount())

		case out := <-s.direct:
			s.mu.RLock()
			if _, ok := s.clients[out.client.id]; ok {
				select {
				case out.client.send <- out.data:
				default:
					internal.LogWarn("control client %s send buffer full, dropping reply", out.client.id)
				}
			}
			s.mu.RUnlock()

		case data := <-s.broadcast:
			s.mu.RLock()
			for _, c := range s.clients {
				select {
				case c.send <- data:
				default:
					internal.LogWarn("control client %s send buffer full, dropping event", c.id)
				}
			}
			s.mu.RUnlock()
		}
	}
}

// HandleWebSocket upgrades the request and registers the client
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.token != "" {
		got := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	if !s.running.Load() {
		http.Error(w, "server not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		internal.LogWarn("websocket accept error: %v", err)
		return
	}

	client := newClient(conn, s)
	select {
	case s.register <- client:
	default:
		internal.LogWarn("control server not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// handle executes one client command and returns the reply
func (s *Server) handle(msg ClientMessage) any {
	switch msg.Action {
	case ActionStart:
		status := s.runner.Start(s.baseContext())
		return AckMessage{Type: "ack", Action: msg.Action, Status: string(status)}
	case ActionStop:
		status := s.runner.Stop()
		return AckMessage{Type: "ack", Action: msg.Action, Status: string(status)}
	case ActionStatus:
		snap := s.runner.Snapshot()
		return AckMessage{Type: "ack", Action: msg.Action, Status: snap.State.String(), Snapshot: &snap}
	default:
		return ErrorMessage{Type: "error", Message: "unknown action: " + msg.Action}
	}
}

func (s *Server) reply(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		internal.LogError("error marshaling reply: %v", err)
		return
	}
	select {
	case s.direct <- outbound{client: c, data: data}:
	default:
		internal.LogWarn("reply channel full, dropping reply to %s", c.id)
	}
}

// forward is the controller observer; it runs on the run goroutine
func (s *Server) forward(ev internal.Event) {
	data, err := json.Marshal(EventMessage{Type: "event", Event: ev})
	if err != nil {
		internal.LogError("error marshaling event: %v", err)
		return
	}
	select {
	case s.broadcast <- data:
	default:
		internal.LogDebug("broadcast channel full, dropping %s event", ev.Kind)
	}
}

func (s *Server) unregisterClient(c *Client) {
	if !s.running.Load() {
		return
	}
	select {
	case s.unregister <- c:
	default:
		internal.LogWarn("unregister channel full for client %s", c.id)
	}
}
