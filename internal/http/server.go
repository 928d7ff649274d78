package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type Server struct {
	log  *logger.Logger
	http *http.Server
}

func NewServer(log *logger.Logger, cfg RouterConfig, address string) *Server {
	return &Server{
		log: log.With("service", "HTTPServer"),
		http: &http.Server{
			Addr:              address,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until SIGINT/SIGTERM, then drains in-flight turns. The drain
// window is generous because a turn holds a thread lease across an LLM call.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.log.Info("http server draining")
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
