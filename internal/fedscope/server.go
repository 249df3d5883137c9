package fedscope

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/fedscope/fedscope/internal/fedscope/handler"
	"github.com/fedscope/fedscope/internal/fedscope/router"
)

// Server is the analysis HTTP server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// NewServer builds the gin engine, registers routes and prepares the HTTP
// server.
func NewServer(opts *Options, h *handler.AnalysisHandler) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	router.Register(engine, h)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.HTTPAddr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
