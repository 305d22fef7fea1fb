// Package socketio provides the Socket.io server for dashboards and
// instrumentation producers.
package socketio

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
)

// IngestNamespace is the namespace producers connect to.
const IngestNamespace = "/ingest"

// EventRequestEverything asks a producer to resend its full state.
const EventRequestEverything = "getEverything"

// Options tunes the server.
type Options struct {
	// MaxExternalClients caps non-loopback dashboards; 0 means no cap.
	MaxExternalClients int
	// DebounceWindow coalesces list pushes per dashboard.
	DebounceWindow time.Duration
	// DefaultFilter is the log filter new dashboards start with.
	DefaultFilter string
	// OnClientCount, if set, is called with the dashboard count after
	// every connect and disconnect.
	OnClientCount func(n int)
}

// Server handles Socket.io connections and events.
type Server struct {
	io      *socket.Server
	manager *media.Manager
	adapter *ingest.Adapter
	opts    Options
	limiter *ConnectionLimiter

	mu        sync.RWMutex
	sessions  map[string]*dashboardSession
	sockets   map[string]*socket.Socket
	producers map[string]*socket.Socket
}

// NewServer creates a new Socket.io server.
func NewServer(manager *media.Manager, adapter *ingest.Adapter, opts Options) (*Server, error) {
	sopts := socket.DefaultServerOptions()
	sopts.SetPingTimeout(20 * time.Second)
	sopts.SetPingInterval(25 * time.Second)
	sopts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:        socket.NewServer(nil, sopts),
		manager:   manager,
		adapter:   adapter,
		opts:      opts,
		limiter:   NewConnectionLimiter(opts.MaxExternalClients),
		sessions:  make(map[string]*dashboardSession),
		sockets:   make(map[string]*socket.Socket),
		producers: make(map[string]*socket.Socket),
	}

	s.setupDashboardHandlers()
	s.setupIngestHandlers()

	return s, nil
}

func (s *Server) setupDashboardHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		addr := client.Handshake().Address

		log.Info().Str("id", clientID).Str("addr", addr).Msg("Dashboard connected")

		if evicted := s.limiter.TryAdd(clientID, addr); evicted != "" {
			s.evict(evicted)
		}

		emit := func(event string, args ...any) {
			client.Emit(event, args...)
		}
		session := newDashboardSession(clientID, s.manager, emit, s.opts.DebounceWindow, s.opts.DefaultFilter)

		s.mu.Lock()
		s.sessions[clientID] = session
		s.sockets[clientID] = client
		count := len(s.sessions)
		s.mu.Unlock()
		s.reportClientCount(count)

		client.On("disconnect", func(args ...any) {
			log.Info().Str("id", clientID).Str("reason", firstString(args)).Msg("Dashboard disconnected")
			s.removeSession(clientID)
		})

		for _, event := range DashboardEvents {
			client.On(event, func(args ...any) {
				log.Debug().Str("id", clientID).Str("event", event).Msg("Dashboard event")
				_ = session.handle(event, args)
			})
		}
	})
}

func (s *Server) setupIngestHandlers() {
	s.io.Of(IngestNamespace, nil).On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		log.Info().Str("id", clientID).Str("addr", client.Handshake().Address).Msg("Producer connected")

		s.mu.Lock()
		s.producers[clientID] = client
		s.mu.Unlock()

		client.On("disconnect", func(args ...any) {
			log.Info().Str("id", clientID).Str("reason", firstString(args)).Msg("Producer disconnected")
			s.mu.Lock()
			delete(s.producers, clientID)
			s.mu.Unlock()
		})

		for _, kind := range ingest.Kinds {
			client.On(string(kind), func(args ...any) {
				if err := s.ingest(kind, args); err != nil {
					client.Emit(EventError, ErrorPayload{Event: string(kind), Message: err.Error()})
				}
			})
		}

		client.Emit(EventRequestEverything)
	})
}

// ingest re-encodes the first event argument and hands it to the adapter.
func (s *Server) ingest(kind ingest.Kind, args []any) error {
	var raw json.RawMessage
	if len(args) > 0 {
		data, err := json.Marshal(args[0])
		if err != nil {
			return err
		}
		raw = data
	}
	return s.adapter.Ingest(kind, raw)
}

// RequestEverything asks every connected producer to resend its state.
func (s *Server) RequestEverything() {
	s.mu.RLock()
	producers := make([]*socket.Socket, 0, len(s.producers))
	for _, p := range s.producers {
		producers = append(producers, p)
	}
	s.mu.RUnlock()

	for _, p := range producers {
		p.Emit(EventRequestEverything)
	}
	log.Debug().Int("producers", len(producers)).Msg("Requested everything")
}

// ClientCount returns the number of connected dashboards.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) evict(clientID string) {
	s.mu.RLock()
	client := s.sockets[clientID]
	s.mu.RUnlock()

	log.Info().Str("id", clientID).Msg("Evicting oldest external dashboard")
	s.removeSession(clientID)
	if client != nil {
		client.Disconnect(true)
	}
}

func (s *Server) removeSession(clientID string) {
	s.mu.Lock()
	session, ok := s.sessions[clientID]
	delete(s.sessions, clientID)
	delete(s.sockets, clientID)
	count := len(s.sessions)
	s.mu.Unlock()

	s.limiter.Remove(clientID)
	if !ok {
		return
	}
	session.close()
	s.reportClientCount(count)
}

func (s *Server) reportClientCount(n int) {
	if s.opts.OnClientCount != nil {
		s.opts.OnClientCount(n)
	}
}

func firstString(args []any) string {
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			return s
		}
	}
	return ""
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes every session and the Socket.io server.
func (s *Server) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*dashboardSession)
	s.sockets = make(map[string]*socket.Socket)
	s.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
	s.io.Close(nil)
	return nil
}
