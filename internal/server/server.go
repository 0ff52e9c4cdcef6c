package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/bus"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/handler"
	"whiteboard-backend/internal/registry"
	"whiteboard-backend/internal/store"
)

// Server wires the sync core together behind one Fiber app.
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	bus               *bus.Bus
	store             *store.TieredStore
	jwtManager        *auth.JWTManager
	whiteboardHandler *handler.WhiteboardHandler
	wsHandler         *handler.WhiteboardWSHandler
}

// New builds the server with all its dependencies.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		AppName:       "Whiteboard Sync Gateway",
		ServerHeader:  "Fiber",
		StrictRouting: true,
		CaseSensitive: true,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		// Prefork forks worker processes; WebSocket needs one process.
		Prefork: false,
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	authorizer := auth.NewGormAuthorizer(db)

	reg := registry.New()
	b := bus.New(rdb, reg)

	tiered := store.New(
		store.NewRedisCache(rdb, cfg.Cache.TTL),
		store.NewGormDocumentStore(db),
	)

	return &Server{
		app:               app,
		cfg:               cfg,
		bus:               b,
		store:             tiered,
		jwtManager:        jwtManager,
		whiteboardHandler: handler.NewWhiteboardHandler(tiered, authorizer),
		wsHandler:         handler.NewWhiteboardWSHandler(cfg, reg, b, jwtManager, authorizer, rdb),
	}
}

// SetupMiddleware installs the ambient middleware stack.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
}

// SetupRoutes registers the REST document path and the sync endpoint.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// REST document path, behind JWT auth.
	api := s.app.Group("/api", auth.AuthMiddleware(s.jwtManager))
	api.Get("/whiteboard/:projectId", s.whiteboardHandler.GetWhiteboard)
	api.Put("/whiteboard/:projectId", s.whiteboardHandler.UpdateWhiteboard)

	// WebSocket upgrade check.
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Sync endpoint, one per document. Authentication happens on the first
	// frame after the upgrade, not here.
	s.app.Get("/ws/whiteboard/:projectId", websocket.New(s.wsHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start runs the bus subscriber, the durable sweep and the HTTP listener,
// and shuts everything down on SIGINT/SIGTERM.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.bus.Run(ctx)
	if s.cfg.Cache.SweepInterval > 0 {
		go s.store.RunSweep(ctx, s.cfg.Cache.SweepInterval)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("[Server] Shutting down...")
		cancel()
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("[Server] Whiteboard sync gateway starting on %s", s.cfg.Server.Port)
	log.Printf("[Server] WebSocket endpoint: ws://localhost%s/ws/whiteboard/:projectId", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
