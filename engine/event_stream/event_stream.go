// Package event_stream publishes viewer events to external collaborators such as a map widget:
// a websocket feed of moves and load progress, a GeoJSON snapshot of the current state and an
// endpoint to open a coordinate.
package event_stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"

	"github.com/Carmen-Shannon/panoview/engine/datasource"
	"github.com/Carmen-Shannon/panoview/engine/navigation"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// EventType names an event on the feed.
type EventType string

const (
	EventMoved    EventType = "moved"
	EventProgress EventType = "progress"
)

// Event is one message on the websocket feed.
type Event struct {
	Type     EventType        `json:"type"`
	Time     time.Time        `json:"time"`
	Panorama *geojson.Feature `json:"panorama,omitempty"`
	Progress *float64         `json:"progress,omitempty"`
}

// StateSource is the viewer state served by /state.
type StateSource interface {
	Active() (panorama.PanoramaRecord, bool)
	Targets() []navigation.Target
}

// OpenFunc moves the viewer to the panorama closest to a coordinate.
type OpenFunc func(ctx context.Context, lat, lon float64) error

type client struct {
	send chan Event
}

type serverImpl struct {
	mu *sync.Mutex

	state  StateSource
	open   OpenFunc
	logger *slog.Logger
	clock  func() time.Time

	bufferSize   int
	pingInterval time.Duration
	writeTimeout time.Duration

	upgrader websocket.Upgrader
	router   *gin.Engine
	clients  map[*client]struct{}
	closed   bool
}

// Server is the HTTP surface of the viewer.
//
// Routes:
//   - GET /events: websocket feed of Event messages, starting with the active panorama
//   - GET /state: the active panorama and its navigation targets as GeoJSON
//   - POST /open: {"lat": .., "lon": ..} opens the closest panorama, when an OpenFunc is set
type Server interface {
	// Handler returns the HTTP handler serving every route.
	Handler() http.Handler

	// Publish sends an event to every connected client. Clients whose buffer is full miss it.
	//
	// Parameters:
	//   - ev: the event
	Publish(ev Event)

	// PublishMoved publishes a moved event for a panorama.
	//
	// Parameters:
	//   - rec: the new active panorama
	PublishMoved(rec panorama.PanoramaRecord)

	// PublishProgress publishes the initial load progress of the active panorama.
	//
	// Parameters:
	//   - progress: value in [0, 1]
	PublishProgress(progress float64)

	// Clients returns the number of connected websocket clients.
	Clients() int

	// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
	//
	// Parameters:
	//   - ctx: stops the server
	//   - addr: the listen address
	//
	// Returns:
	//   - error: a listen error; nil after a clean shutdown
	ListenAndServe(ctx context.Context, addr string) error

	// Close disconnects every client and refuses new ones.
	Close()
}

var _ Server = &serverImpl{}

// NewServer creates a Server.
//
// Parameters:
//   - state: the viewer state
//   - options: functional options
//
// Returns:
//   - Server: the server
func NewServer(state StateSource, options ...ServerOption) Server {
	s := &serverImpl{
		mu:           &sync.Mutex{},
		state:        state,
		logger:       slog.Default(),
		clock:        time.Now,
		bufferSize:   16,
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// The feed is read-only and carries no credentials.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.logRequests())
	s.router.GET("/events", s.handleEvents)
	s.router.GET("/state", s.handleState)
	if s.open != nil {
		s.router.POST("/open", s.handleOpen)
	}
	return s
}

func (s *serverImpl) Handler() http.Handler {
	return s.router
}

func (s *serverImpl) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = s.clock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- ev:
		default:
			s.logger.Debug("event dropped for slow client", "type", ev.Type)
		}
	}
}

func (s *serverImpl) PublishMoved(rec panorama.PanoramaRecord) {
	s.Publish(Event{Type: EventMoved, Panorama: datasource.RecordFeature(rec)})
}

func (s *serverImpl) PublishProgress(progress float64) {
	s.Publish(Event{Type: EventProgress, Progress: &progress})
}

func (s *serverImpl) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *serverImpl) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("event stream listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *serverImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *serverImpl) register() *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	c := &client{send: make(chan Event, s.bufferSize)}
	s.clients[c] = struct{}{}
	return c
}

func (s *serverImpl) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *serverImpl) handleEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	cl := s.register()
	if cl == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closed"))
		return
	}
	defer s.unregister(cl)
	s.logger.Debug("event client connected", "remote", c.Request.RemoteAddr)

	if rec, ok := s.state.Active(); ok {
		if err := s.write(conn, Event{Type: EventMoved, Time: s.clock(), Panorama: datasource.RecordFeature(rec)}); err != nil {
			return
		}
	}

	// Clients never send anything; reading only surfaces the close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("event client read failed", "error", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-cl.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closed"),
					time.Now().Add(s.writeTimeout))
				return
			}
			if err := s.write(conn, ev); err != nil {
				s.logger.Debug("event client write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

func (s *serverImpl) write(conn *websocket.Conn, ev Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

type openRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

func (s *serverImpl) handleOpen(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lon < -180 || *req.Lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinate out of range"})
		return
	}

	err := s.open(c.Request.Context(), *req.Lat, *req.Lon)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, s.currentState())
	case errors.Is(err, navigation.ErrTransitionInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, datasource.ErrNoPanorama):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func (s *serverImpl) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.currentState())
}

// logRequests logs every request through slog.
func (s *serverImpl) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
