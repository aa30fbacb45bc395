package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Handler serves one accepted client connection until it ends.
type Handler interface {
	Serve(ctx context.Context, conn net.Conn)
}

type Options struct {
	Port uint16
	// MetricsAddress enables the /metrics endpoint when set.
	MetricsAddress string
	// Gatherer backs the /metrics endpoint.
	Gatherer prometheus.Gatherer
	Logger   logrus.FieldLogger
}

type Server struct {
	opts    Options
	handler Handler
	logger  logrus.FieldLogger

	// ready is closed once the listener is bound.
	ready chan struct{}
	addr  net.Addr
}

func NewServer(handler Handler, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		handler: handler,
		opts:    opts,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Addr blocks until ListenAndServe has tried to bind and returns the bound
// address, nil if binding failed.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

// ListenAndServe accepts clients, and serves metrics when configured, until
// ctx is done or either listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.opts.Port)
	s.logger.Info("listening at ", addr)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		close(s.ready)
		return fmt.Errorf("failed to bind to port %d: %w", s.opts.Port, err)
	}
	s.addr = l.Addr()
	close(s.ready)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.acceptLoop(ctx, l)
	})
	if s.opts.MetricsAddress != "" {
		g.Go(func() error {
			return s.serveMetrics(ctx)
		})
	}
	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()
	defer l.Close()

	s.logger.Info("Ready to accept connections tcp")
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("stopped accepting connections")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handler.Serve(ctx, conn)
	}
}

func (s *Server) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              s.opts.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving metrics at ", s.opts.MetricsAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}
}
