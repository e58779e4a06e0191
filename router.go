package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/config"
	"github.com/threadgate/threadgate/pkg/event"
	"github.com/threadgate/threadgate/pkg/handler"
	"github.com/threadgate/threadgate/pkg/metrics"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/service"
	"github.com/threadgate/threadgate/pkg/utils"
)

type Server struct {
	ginEngine *gin.Engine
	cfg       *config.AppConfig
	gdb       *gorm.DB
	cache     service.Cache
	logger    *slog.Logger
	port      int
}

func NewServer(cfg *config.AppConfig, gdb *gorm.DB) *Server {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	// CORS middleware: allow common localhost dev origins.
	// Note: if you don't need cookies/credentials, keep Allow-Credentials off.
	ginEngine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// If there's no Origin header, it's not a browser CORS request.
		if origin != "" {
			allowed := strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1") ||
				strings.HasPrefix(origin, "https://localhost") ||
				strings.HasPrefix(origin, "https://127.0.0.1")

			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
				c.Header("Access-Control-Allow-Credentials", "true")
			} else {
				// Reject unknown origins.
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	attachStatic(ginEngine)

	server := &Server{
		ginEngine: ginEngine,
		cfg:       cfg,
		gdb:       gdb,
		logger:    utils.GetLogger(),
		port:      0,
	}

	server.SetupRoutes()

	return server
}

func (s *Server) Start(ctx context.Context) error {
	// Read port from environment variable THREADGATE_PORT, fall back to config
	port := s.cfg.Port()
	if v := os.Getenv("THREADGATE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			port = p
		} else {
			s.logger.Warn("Invalid THREADGATE_PORT value, falling back to config", "value", v)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host(), port)
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	// Attempt to listen on port first; if occupied return error immediately
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	// Record the actual port (useful if we ever switch to :0).
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	} else {
		s.port = port
	}
	s.logger.Info("Server listening", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	// Listen for context cancellation for graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if s.cache != nil {
			s.cache.Close()
		}
	}()

	// Non-blocking: if startup fails immediately return error; otherwise return nil to let main continue
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	default:
	}
	return nil
}

func (s *Server) SetupRoutes() {
	factory := provider.NewFactory(s.cfg.ProviderAPIKey(), s.cfg.ProviderBaseURL())

	authService := service.NewAuthService(s.gdb)
	conversationService := service.NewConversationService(s.gdb)
	assistantService := service.NewAssistantService(s.gdb)
	chatLogService := service.NewChatLogService(s.cfg.ChatLogDir())
	threadService := service.NewThreadService(s.gdb, s.cfg)
	runService := service.NewRunService(s.gdb, threadService, chatLogService, s.cfg)
	uploadService := service.NewUploadService(s.gdb, s.cfg)
	s.cache = service.NewCache(s.cfg)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	chatHandler := handler.NewChatHandler(runService, conversationService, factory, s.logger)
	conversationHandler := handler.NewConversationHandler(conversationService, threadService, factory, s.logger)
	fileHandler := handler.NewFileHandler(uploadService, assistantService, factory, s.logger)
	assistantHandler := handler.NewAssistantHandler(assistantService, factory, s.logger)
	wsHandler := event.NewWSHandler()

	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.ginEngine.GET("/metrics", metrics.Handler())

	// API group
	// /api
	apiGroup := s.ginEngine.Group("/api")

	authedGroup := apiGroup.Group("")
	authedGroup.Use(authHandler.Middleware())

	// /api/auth
	authHandler.RegisterRoutes(apiGroup, authedGroup)

	// Event stream must stay outside the cached group, the connection is hijacked.
	// /api/events/ws
	authedGroup.GET("/events/ws", wsHandler.Handle)

	// Short-lived response cache for authed GET endpoints.
	cachedGroup := authedGroup.Group("", handler.CacheMiddleware(s.cache))

	// /api/chat
	chatHandler.RegisterRoutes(cachedGroup)

	// /api/conversations
	conversationHandler.RegisterRoutes(cachedGroup)

	// /api/files
	fileHandler.RegisterRoutes(cachedGroup)

	// /api/assistants
	assistantHandler.RegisterRoutes(cachedGroup)
}
