package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/simpletcp/responder/config"
)

// echoBufferSize is the per-read buffer; each read is echoed back in full
// before the next read is issued.
const echoBufferSize = 1024

// EchoServer is a TCP server that mirrors every byte it receives back to
// the same connection. Payloads are treated as opaque bytes.
type EchoServer struct {
	port        int
	bindAddress string

	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	running  bool
}

// NewEchoServer constructs an echo server from a spec. The spec is
// validated defensively.
func NewEchoServer(spec config.ServerSpec, logger *slog.Logger) (*EchoServer, error) {
	if spec.Kind != config.KindEcho {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	bind := spec.BindAddress
	if bind == "" {
		bind = config.DefaultBindAddress
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &EchoServer{
		port:        spec.Port,
		bindAddress: bind,
		logger:      logger.With("server", config.KindEcho, "port", spec.Port),
		conns:       make(map[net.Conn]struct{}),
	}, nil
}

func (s *EchoServer) Kind() string        { return config.KindEcho }
func (s *EchoServer) BindAddress() string { return s.bindAddress }
func (s *EchoServer) Port() int           { return s.port }

// Running reports whether the accept loop is live.
func (s *EchoServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start binds the listener and accepts connections until the context is
// canceled or Stop is called. A bind failure is returned as *BindError and
// is not retried.
func (s *EchoServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.bindAddress, strconv.Itoa(s.port))

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("failed to start echo server", "addr", addr, "error", err)
		return &BindError{Addr: addr, Err: err}
	}

	s.mu.Lock()
	s.listener = lis
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("echo server started", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		s.closeListener()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("echo server shutting down")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.trackConn(conn)
		go s.handleConn(conn)
	}
}

// Stop closes the listener so no new connections are accepted, then closes
// any in-flight connections so shutdown stays bounded.
func (s *EchoServer) Stop(_ context.Context) error {
	err := s.closeListener()

	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	if err != nil {
		return fmt.Errorf("stopping echo server on port %d: %w", s.port, err)
	}
	return nil
}

func (s *EchoServer) closeListener() error {
	s.mu.Lock()
	lis := s.listener
	s.listener = nil
	s.mu.Unlock()

	if lis == nil {
		return nil
	}
	return lis.Close()
}

func (s *EchoServer) trackConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *EchoServer) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConn echoes until the peer closes its write side or an I/O error
// occurs. Errors here terminate this connection only.
func (s *EchoServer) handleConn(conn net.Conn) {
	defer func() {
		s.untrackConn(conn)
		conn.Close()
	}()

	logger := s.logger.With("conn", uuid.NewString(), "remote", conn.RemoteAddr().String())
	logger.Info("new connection")

	buf := make([]byte, echoBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				logger.Error("write failed", "error", werr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("connection closed by peer")
			} else if !errors.Is(err, net.ErrClosed) {
				logger.Error("read failed", "error", err)
			}
			return
		}
	}
}
