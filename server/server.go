// Package server exposes the print strategy over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/logger"
	"github.com/nixxel-company-limited/pdf-print-server/printing"
)

const defaultShutdownTimeout = 10 * time.Second

// Options configures request handling.
type Options struct {
	// TempDir receives uploads when SpoolToDisk is set.
	TempDir     string
	SpoolToDisk bool
	// MaxUploadBytes bounds the request body. Zero means 32 MiB.
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	// Defaults supplies every request field the client leaves out.
	Defaults printing.Request
}

// Server is an HTTP server that forwards uploaded PDFs to a print strategy
type Server struct {
	strategy   printing.Strategy
	options    Options
	router     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	address    string
	mu         sync.Mutex
	running    bool
	wg         sync.WaitGroup
	logger     *zap.Logger
}

// New creates a new server instance logging to stdout
func New(strategy printing.Strategy, address string, options Options) *Server {
	l, err := logger.New(logger.DefaultConfig())
	if err != nil {
		l = zap.NewNop()
	}
	return NewWithLogger(strategy, address, options, l)
}

// NewWithLogger creates a new server instance with a custom logger
func NewWithLogger(strategy printing.Strategy, address string, options Options, l *zap.Logger) *Server {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 32 << 20
	}
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{
		strategy: strategy,
		options:  options,
		address:  address,
		logger:   l.Named("server"),
	}
	s.router = s.newRouter()
	return s
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.options.MaxUploadBytes
	router.Use(logger.Recovery(s.logger), logger.GinMiddleware(s.logger))

	router.POST("/print", s.limitBody, s.handlePrint)
	router.GET("/health", s.handleHealth)
	return router
}

// Handler returns the HTTP handler serving the print API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Error("Server already running")
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Error("Failed to start server", zap.Error(err))
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true
	s.logger.Info("Server listening",
		zap.String("address", listener.Addr().String()),
		zap.String("strategy", s.strategy.Name()),
	)
	return nil
}

// Start starts the HTTP server and blocks until Stop is called
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	return s.serve()
}

// StartAsync starts the HTTP server in a goroutine (non-blocking)
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.serve(); err != nil {
			s.logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) serve() error {
	s.mu.Lock()
	httpServer, listener := s.httpServer, s.listener
	s.mu.Unlock()

	err := httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return err
}

// Stop waits for in-flight print requests to finish, up to the shutdown timeout,
// and stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Debug("Stop called but server is not running")
		return nil
	}

	s.logger.Info("Stopping server...")
	s.running = false
	httpServer := s.httpServer
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		s.logger.Error("Graceful shutdown failed", zap.Error(err))
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.logger.Info("Server stopped successfully")
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the bound address while listening, otherwise the configured one
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}

// GetStrategy returns the underlying print strategy
func (s *Server) GetStrategy() printing.Strategy {
	return s.strategy
}
