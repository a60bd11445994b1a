// Package server accepts landmark streams from detectors, rigs one avatar per
// session and streams the render state back to the detector and to viewers.
package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	viewerws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-facerig/internal/config"
	"github.com/teslashibe/go-facerig/internal/log"
	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/hub"
	"github.com/teslashibe/go-facerig/pkg/protocol"
)

// Version is reported by the health endpoint
const Version = "0.3.0"

// Options tune the HTTP surface
type Options struct {
	// Debug enables per-request logging
	Debug bool
	// Mode is the default rig mode for new sessions
	Mode avatar.Mode
	// Preview size when the request does not specify one
	PreviewWidth  int
	PreviewHeight int
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = avatar.ModeBoth
	}
	if o.PreviewWidth <= 0 {
		o.PreviewWidth = 480
	}
	if o.PreviewHeight <= 0 {
		o.PreviewHeight = 360
	}
	return o
}

// Server is the rig service
type Server struct {
	app     *fiber.App
	opts    Options
	cfg     atomic.Pointer[config.Config]
	viewers *hub.Hub

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
	framesRejected   atomic.Uint64
}

// Stats contains service counters
type Stats struct {
	Sessions         int       `json:"sessions"`
	Viewers          hub.Stats `json:"viewers"`
	MessagesReceived uint64    `json:"messages_received"`
	MessagesSent     uint64    `json:"messages_sent"`
	FramesReceived   uint64    `json:"frames_received"`
	FramesRejected   uint64    `json:"frames_rejected"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
}

// New builds the Fiber app and starts the viewer hub
func New(cfg config.Config, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:     opts.withDefaults(),
		viewers:  hub.New("viewers"),
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
		started:  time.Now(),
	}
	s.cfg.Store(&cfg)

	app := fiber.New(fiber.Config{
		AppName:               "facerig",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if s.opts.Debug {
		app.Use(logger.New())
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/detector", websocket.New(s.handleDetector))
	app.Get("/ws/detector/:id", websocket.New(s.handleDetector))
	app.Get("/ws/viewer", viewerws.New(s.handleViewer))

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)
	s.registerAPIRoutes(app.Group("/api"))

	s.app = app
	go s.viewers.Run(ctx)
	return s
}

// App exposes the Fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Config returns the active configuration
func (s *Server) Config() config.Config {
	return *s.cfg.Load()
}

// SetConfig swaps the configuration. Sessions opened afterwards use it;
// existing sessions keep the controller they own.
func (s *Server) SetConfig(cfg config.Config) {
	s.cfg.Store(&cfg)
	log.Info("configuration updated", "path", cfg.Path, "objects", len(cfg.Objects))
}

// Start listens on the configured port and blocks until shutdown
func (s *Server) Start() error {
	port := s.Config().Server.Port
	log.Info("starting server", "addr", ":"+port)
	log.Info("detector websocket", "url", "ws://localhost:"+port+"/ws/detector")
	log.Info("viewer websocket", "url", "ws://localhost:"+port+"/ws/viewer")
	return s.app.Listen(":" + port)
}

// Shutdown stops accepting connections and stops the viewer hub
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.app.ShutdownWithContext(ctx)
}

// Stats returns service counters
func (s *Server) Stats() Stats {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	return Stats{
		Sessions:         n,
		Viewers:          s.viewers.Stats(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSent:     s.messagesSent.Load(),
		FramesReceived:   s.framesReceived.Load(),
		FramesRejected:   s.framesRejected.Load(),
		UptimeSeconds:    time.Since(s.started).Seconds(),
	}
}

// Session returns a connected session, or nil
func (s *Server) Session(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Sessions returns info for every connected session
func (s *Server) Sessions() []SessionInfo {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, ss := range s.sessions {
		list = append(list, ss)
	}
	s.mu.RUnlock()

	infos := make([]SessionInfo, len(list))
	for i, ss := range list {
		infos[i] = ss.Info()
	}
	return infos
}

var errSessionInUse = errors.New("session id already connected")

// handleDetector runs one detector session
func (s *Server) handleDetector(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	ctrl, err := s.Config().NewController()
	if err != nil {
		log.Error("session controller", "session", id, "error", err)
		s.closeWithError(c, protocol.CodeBadConfig, err)
		return
	}
	mode := s.opts.Mode
	if q := c.Query("mode"); q != "" {
		if mode, err = avatar.ParseMode(q); err != nil {
			s.closeWithError(c, protocol.CodeBadConfig, err)
			return
		}
	}

	ss := newSession(id, c, ctrl, mode)
	s.mu.Lock()
	if _, taken := s.sessions[id]; taken {
		s.mu.Unlock()
		s.closeWithError(c, protocol.CodeBadConfig, errSessionInUse)
		return
	}
	s.sessions[id] = ss
	count := len(s.sessions)
	s.mu.Unlock()
	log.Info("detector connected", "session", id, "mode", mode, "total", count)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		count := len(s.sessions)
		s.mu.Unlock()
		log.Info("detector disconnected", "session", id, "remaining", count)
	}()

	if hello, err := protocol.NewSessionMessage(id, mode, ss.objectNames()); err == nil {
		s.send(ss, hello)
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("detector read ended", "session", id, "error", err)
			return
		}
		s.messagesReceived.Add(1)

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			if e, _ := protocol.NewErrorMessage(protocol.CodeBadMessage, err); e != nil {
				s.send(ss, e)
			}
			continue
		}

		r := ss.process(msg)
		if r.frame {
			s.framesReceived.Add(1)
		}
		if r.rejected && r.frame {
			s.framesRejected.Add(1)
		}
		if r.msg == nil {
			continue
		}
		s.send(ss, r.msg)
		if r.broadcast {
			s.broadcast(r.msg)
		}
	}
}

// handleViewer streams rig frames; ?session= follows a single detector
func (s *Server) handleViewer(c *viewerws.Conn) {
	hub.NewClient(s.viewers, c, c.Query("session")).Run()
}

func (s *Server) send(ss *Session, msg *protocol.Message) {
	if err := ss.Send(msg); err != nil {
		log.Warn("send failed", "session", ss.ID, "error", err)
		return
	}
	s.messagesSent.Add(1)
}

func (s *Server) broadcast(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		log.Warn("encode broadcast", "error", err)
		return
	}
	s.viewers.Broadcast(hub.NewMessage(msg.Session, data))
}

func (s *Server) closeWithError(c *websocket.Conn, code string, err error) {
	msg, mErr := protocol.NewErrorMessage(code, err)
	if mErr != nil {
		return
	}
	if data, mErr := msg.Bytes(); mErr == nil {
		c.WriteMessage(websocket.TextMessage, data)
	}
}
