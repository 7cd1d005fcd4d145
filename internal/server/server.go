package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whispr/config"
	"whispr/internal/handler"
	"whispr/internal/middleware"
	"whispr/internal/services"
	"whispr/internal/transport/httpdto"
	"whispr/pkg/database"
	"whispr/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Message   *handler.MessageHandler
	Upload    *handler.UploadHandler
	WebSocket *handler.WebSocketHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	auth := s.engine.Group("/api/auth")
	{
		auth.POST("/signup", handlers.Auth.Signup)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.AuthMiddleware(authService), handlers.Auth.Me)
	}

	messages := s.engine.Group("/api/messages", middleware.AuthMiddleware(authService))
	{
		messages.GET("/users", handlers.Message.Contacts)
		messages.GET("/chats", handlers.Message.Chats)
		messages.GET("/pinned/:peerId", handlers.Message.Pinned)
		messages.POST("/send/:peerId", handlers.Message.Send)
		messages.PUT("/read/:peerId", handlers.Message.MarkRead)
		messages.PUT("/pin/:messageId", handlers.Message.Pin)
		messages.PUT("/unpin/:messageId", handlers.Message.Unpin)
		messages.DELETE("/everyone/:messageId", handlers.Message.DeleteForEveryone)
		messages.DELETE("/me/:messageId", handlers.Message.DeleteForMe)
		messages.GET("/:peerId", handlers.Message.Conversation)
	}

	if handlers.Upload != nil {
		uploads := s.engine.Group("/api/uploads", middleware.AuthMiddleware(authService))
		uploads.POST("/presign", handlers.Upload.Presign)
	}

	s.engine.GET("/ws", handlers.WebSocket.Handle)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
