// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/animekun-backend/internal/domain/calendar"
	"github.com/edumarques81/animekun-backend/internal/domain/favorites"
	"github.com/edumarques81/animekun-backend/internal/domain/section"
	"github.com/edumarques81/animekun-backend/internal/domain/session"
	"github.com/edumarques81/animekun-backend/internal/metrics"
)

// Options configures the Socket.io server.
type Options struct {
	MaxExternalClients int
	SearchDebounce     time.Duration
	CORSOrigins        []string
	Now                func() time.Time
}

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	sessions  *session.Registry
	favorites *favorites.Store
	calendar  *calendar.Service
	limiter   *ConnectionLimiter
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	clients map[string]*client
}

// client is the per-connection state.
type client struct {
	socket *socket.Socket
	svc    *section.Service
	search *SearchDebouncer
	ctx    context.Context
	cancel context.CancelFunc
}

// socketObserver pushes section changes to one client.
type socketObserver struct {
	socket *socket.Socket
}

func (o socketObserver) SectionsReplaced(sess section.Session, states []section.State) {
	o.socket.Emit("pushSections", SectionsPayload{Session: sess, Sections: states})
}

func (o socketObserver) SectionUpdated(state section.State) {
	o.socket.Emit("pushSection", state)
}

// NewServer creates a new Socket.io server.
func NewServer(sessions *session.Registry, favs *favorites.Store, cal *calendar.Service, opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ioOpts := socket.DefaultServerOptions()
	ioOpts.SetPingTimeout(20 * time.Second)
	ioOpts.SetPingInterval(25 * time.Second)
	ioOpts.SetCors(&types.Cors{
		Origin:      corsOrigin(opts.CORSOrigins),
		Credentials: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		io:        socket.NewServer(nil, ioOpts),
		sessions:  sessions,
		favorites: favs,
		calendar:  cal,
		limiter:   NewConnectionLimiter(opts.MaxExternalClients),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		clients:   make(map[string]*client),
	}

	if favs != nil {
		favs.Subscribe(s.BroadcastFavorites)
	}
	s.setupHandlers()

	return s, nil
}

// corsOrigin maps the configured origins onto the engine's Origin value.
func corsOrigin(origins []string) any {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return "*"
	}
	if len(origins) == 1 {
		return origins[0]
	}
	list := make([]any, 0, len(origins))
	for _, o := range origins {
		list = append(list, o)
	}
	return list
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		sock := clients[0].(*socket.Socket)
		clientID := string(sock.Id())
		remote := sock.Handshake().Address

		log.Info().Str("id", clientID).Str("remote", remote).Msg("Client connected")

		if evicted := s.limiter.Admit(clientID, remote); evicted != "" {
			s.evict(evicted)
		}

		c := s.register(clientID, sock)

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushOptions(sock)
			s.pushFavorites(sock)
			c.svc.Refresh(c.ctx)
		}()

		sock.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")
			s.unregister(clientID)
		})

		// Section events
		sock.On("getSections", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getSections")
			c.svc.Publish()
		})

		sock.On("setView", func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg("setView")
			view, err := stringArg(args, "view")
			if err != nil {
				s.pushError(sock, "setView", err)
				return
			}
			s.run(c, "setView", func(ctx context.Context) error {
				return c.svc.SetView(ctx, section.View(view))
			})
		})

		sock.On("search", func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg("search")
			term, err := stringArg(args, "term")
			if err != nil {
				s.pushError(sock, "search", err)
				return
			}
			c.search.Trigger(term)
		})

		sock.On("setFilters", func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg("setFilters")
			filters := c.svc.Session().Filters
			if err := decodeArg(args, &filters); err != nil {
				s.pushError(sock, "setFilters", err)
				return
			}
			s.run(c, "setFilters", func(ctx context.Context) error {
				return c.svc.SetFilters(ctx, filters)
			})
		})

		sock.On("setPeriod", func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg("setPeriod")
			current := c.svc.Session()
			period := section.Period{Year: current.Year, Season: current.Season}
			if err := decodeArg(args, &period); err != nil {
				s.pushError(sock, "setPeriod", err)
				return
			}
			s.run(c, "setPeriod", func(ctx context.Context) error {
				return c.svc.SetPeriod(ctx, period)
			})
		})

		sock.On("loadMore", func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg("loadMore")
			id, err := stringArg(args, "id")
			if err != nil {
				s.pushError(sock, "loadMore", err)
				return
			}
			s.run(c, "loadMore", func(ctx context.Context) error {
				return c.svc.LoadMore(ctx, id)
			})
		})

		// Favorites events
		sock.On("toggleFavorite", func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg("toggleFavorite")
			id, err := mediaIDArg(args)
			if err != nil {
				s.pushError(sock, "toggleFavorite", err)
				return
			}
			if s.favorites == nil {
				return
			}
			s.favorites.Toggle(id)
		})

		sock.On("getFavorites", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getFavorites")
			s.pushFavorites(sock)
		})

		// Calendar and catalogue events
		sock.On("getCalendar", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getCalendar")
			go s.pushCalendar(c)
		})

		sock.On("getOptions", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getOptions")
			s.pushOptions(sock)
		})
	})
}

func (s *Server) register(clientID string, sock *socket.Socket) *client {
	ctx, cancel := context.WithCancel(s.ctx)
	svc, _ := s.sessions.Open(clientID, socketObserver{socket: sock})
	c := &client{
		socket: sock,
		svc:    svc,
		ctx:    ctx,
		cancel: cancel,
	}
	c.search = NewSearchDebouncer(s.opts.SearchDebounce, func(term string) {
		go svc.SetSearch(ctx, term)
	})

	s.mu.Lock()
	s.clients[clientID] = c
	count := len(s.clients)
	s.mu.Unlock()

	metrics.ConnectedClients.Set(float64(count))
	return c
}

func (s *Server) unregister(clientID string) {
	s.mu.Lock()
	c, ok := s.clients[clientID]
	delete(s.clients, clientID)
	count := len(s.clients)
	s.mu.Unlock()

	s.limiter.Remove(clientID)
	s.sessions.Close(clientID)
	metrics.ConnectedClients.Set(float64(count))

	if ok {
		c.search.Stop()
		c.cancel()
	}
}

// evict disconnects a client pushed out by the connection limiter.
func (s *Server) evict(clientID string) {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	log.Warn().Str("id", clientID).Msg("Evicting oldest external client")
	c.socket.Disconnect(true)
	s.unregister(clientID)
}

// run executes a blocking session operation off the event loop and reports
// its error to the client.
func (s *Server) run(c *client, event string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(c.ctx); err != nil {
			log.Warn().Err(err).Str("event", event).Msg("Event failed")
			s.pushError(c.socket, event, err)
		}
	}()
}

// pushError sends a displayable error to a client.
func (s *Server) pushError(sock *socket.Socket, event string, err error) {
	sock.Emit("pushError", ErrorPayload{Event: event, Message: section.NormalizeError(err)})
}

// pushOptions sends the option catalogue to a client.
func (s *Server) pushOptions(sock *socket.Socket) {
	sock.Emit("pushOptions", section.CatalogOptions(s.opts.Now()))
}

// pushFavorites sends the favorite ids to a client.
func (s *Server) pushFavorites(sock *socket.Socket) {
	ids := []int{}
	if s.favorites != nil {
		ids = s.favorites.IDs()
	}
	sock.Emit("pushFavorites", FavoritesPayload{IDs: ids})
}

// pushCalendar loads the weekly calendar and sends the loading state
// followed by the outcome.
func (s *Server) pushCalendar(c *client) {
	c.socket.Emit("pushCalendar", CalendarPayload{IsLoading: true})
	if s.calendar == nil {
		c.socket.Emit("pushCalendar", CalendarPayload{})
		return
	}

	week, err := s.calendar.Load(c.ctx)
	if err != nil {
		c.socket.Emit("pushCalendar", CalendarPayload{Error: section.NormalizeError(err)})
		return
	}
	c.socket.Emit("pushCalendar", CalendarPayload{Week: week})
}

// BroadcastFavorites sends the favorite ids to all connected clients.
func (s *Server) BroadcastFavorites(ids []int) {
	if ids == nil {
		ids = []int{}
	}
	s.io.Emit("pushFavorites", FavoritesPayload{IDs: ids})

	if log.Debug().Enabled() {
		data, _ := json.Marshal(ids)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("ids", data).Int("clients", clientCount).Msg("Broadcast favorites")
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.mu.Lock()
	for _, c := range s.clients {
		c.search.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.io.Close(nil)
	return nil
}
