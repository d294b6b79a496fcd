package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"reactbot/internal/app/events"
)

var log = logrus.WithField("prefix", "ws")

// Subscriber es la parte del bus que consume el feed.
type Subscriber interface {
	Subscribe(topic string) (<-chan any, func())
}

type Config struct {
	Addr     string
	Bus      Subscriber
	Bindings BindingLister
}

func (c *Config) addr() string {
	if c == nil || c.Addr == "" {
		return ":8080"
	}
	return c.Addr
}

// Server expone un endpoint WebSocket y retransmite cada evento del bus como JSON.
type Server struct {
	addr     string
	bus      Subscriber
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	httpSrv *http.Server
	api     *apiHandlers
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

// Envelope es lo que recibe cada cliente.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewServer(cfg Config) *Server {
	return &Server{
		addr: cfg.addr(),
		bus:  cfg.Bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*wsClient]struct{}),
		api:     newAPIHandlers(cfg),
	}
}

// Handler arma el mux del servidor. Start lo usa; los tests lo montan en httptest.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(ctx, w, r)
	})
	s.api.register(mux)
	return mux
}

// Start levanta el HTTP server y se bloquea hasta que el contexto se cancela.
func (s *Server) Start(ctx context.Context) error {
	s.forwardEvents(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("shutdown error")
		}
		s.closeClients()
	}()

	log.WithField("addr", s.addr).Info("event feed listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// forwardEvents se suscribe a todos los topics y los reenvía hasta que ctx se cancela.
func (s *Server) forwardEvents(ctx context.Context) {
	if s.bus == nil {
		return
	}
	for _, topic := range events.Topics() {
		ch, unsubscribe := s.bus.Subscribe(topic)
		go func(topic string, ch <-chan any, unsubscribe func()) {
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					if err := s.Broadcast(ctx, Envelope{Type: topic, Data: payload}); err != nil {
						return
					}
				}
			}
		}(topic, ch, unsubscribe)
	}
}

func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade error")
		return
	}

	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	clientCount := len(s.clients)
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"remote":  r.RemoteAddr,
		"clients": clientCount,
	}).Info("nueva conexión")

	go s.handleClient(ctx, client)
}

// handleClient solo lee para detectar el cierre; el feed es de una sola vía.
func (s *Server) handleClient(ctx context.Context, client *wsClient) {
	defer s.dropClient(client)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, _, err := client.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("read error")
			}
			return
		}
	}
}

func (s *Server) dropClient(client *wsClient) {
	s.mu.Lock()
	_, ok := s.clients[client]
	delete(s.clients, client)
	clientCount := len(s.clients)
	s.mu.Unlock()

	if ok {
		client.conn.Close()
		log.WithField("clients", clientCount).Info("conexión cerrada")
	}
}

func (s *Server) closeClients() {
	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()
	for _, c := range clients {
		s.dropClient(c)
	}
}

// Broadcast envía el payload a cada cliente WS; los que fallan se desconectan.
func (s *Server) Broadcast(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.writeJSON(json.RawMessage(data)); err != nil {
			log.WithError(err).Warn("removing client due to write error")
			s.dropClient(c)
		}
	}
	return nil
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
