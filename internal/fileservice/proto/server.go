package proto

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// ServerConfig configures a device agent.
type ServerConfig struct {
	// Service backs every connection. Implementations must be safe for
	// concurrent use because connections are served in parallel.
	Service    fileservice.Service
	Logger     *slog.Logger
	ListenAddr string
	// DrainTimeout bounds how long Serve waits for active connections
	// after the context is cancelled.
	DrainTimeout time.Duration
	Compress     bool
}

// Server accepts device protocol connections and serves each with its own
// Handler.
type Server struct {
	listener net.Listener
	conns    map[net.Conn]struct{}
	cfg      ServerConfig
	mu       sync.Mutex
}

// Listen opens the listening socket. Call Serve to start accepting.
func Listen(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("listen: %w", fileservice.ErrNilService)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 30 * time.Second
	}
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	return &Server{
		listener: ln,
		conns:    make(map[net.Conn]struct{}),
		cfg:      cfg,
	}, nil
}

// Addr returns the listener's address (useful when listening on :0).
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled. Blocks until shutdown
// completes.
func (s *Server) Serve(ctx context.Context) error {
	s.cfg.Logger.Info("device agent listening", "addr", s.listener.Addr(), "compress", s.cfg.Compress)

	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		s.listener.Close()

		time.AfterFunc(s.cfg.DrainTimeout, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for conn := range s.conns {
				conn.Close()
			}
		})
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.cfg.Logger.Error("accept error", "error", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		wg.Go(func() {
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.handleConn(conn)
		})
	}

	wg.Wait()
	return nil
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	log := s.cfg.Logger.With("remote", remote)
	log.Info("new connection")

	h := NewHandler(s.cfg.Service, s.cfg.Compress, log)
	if err := h.Serve(conn); err != nil {
		log.Warn("connection error", "error", err)
		return
	}
	log.Info("connection closed")
}
