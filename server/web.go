package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/simpletcp/responder/config"
)

// serverIdent is the value of the Server response header.
const serverIdent = "SimpleTCPResponder"

// WebServer answers every HTTP request, regardless of method, path, query
// or headers, with one fixed body.
type WebServer struct {
	port        int
	bindAddress string
	content     string
	contentType string

	logger *slog.Logger

	mu      sync.Mutex
	httpSrv *http.Server
	running bool
}

// NewWebServer constructs a web server from a spec. The spec is validated
// defensively; web specs must carry non-empty content.
func NewWebServer(spec config.ServerSpec, logger *slog.Logger) (*WebServer, error) {
	if spec.Kind != config.KindWeb {
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

	return &WebServer{
		port:        spec.Port,
		bindAddress: bind,
		content:     spec.Content,
		contentType: detectContentType(spec.Content),
		logger:      logger.With("server", config.KindWeb, "port", spec.Port),
	}, nil
}

// detectContentType picks text/html only when the trimmed content starts
// with a case-sensitive <!DOCTYPE or <html prefix.
func detectContentType(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<html") {
		return "text/html"
	}
	return "text/plain"
}

func (s *WebServer) Kind() string        { return config.KindWeb }
func (s *WebServer) BindAddress() string { return s.bindAddress }
func (s *WebServer) Port() int           { return s.port }

// Running reports whether the server is currently serving.
func (s *WebServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start binds the listener and serves until the context is canceled or
// Stop is called. A bind failure is returned as *BindError.
func (s *WebServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.bindAddress, strconv.Itoa(s.port))

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("failed to start web server", "addr", addr, "error", err)
		return &BindError{Addr: addr, Err: err}
	}

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.Any("/", s.handle)
	router.Any("/*", s.handle)

	srv := &http.Server{Handler: router}

	s.mu.Lock()
	s.httpSrv = srv
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("web server started", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}

	s.logger.Info("web server shutting down")
	return nil
}

// handle answers every request with the configured content. Errors while
// writing the response terminate only that request.
func (s *WebServer) handle(c echo.Context) error {
	req := c.Request()
	s.logger.Info("request", "method", req.Method, "path", req.URL.Path, "remote", c.RealIP())

	header := c.Response().Header()
	header.Set("Server", serverIdent)
	header.Set("X-Served-Port", strconv.Itoa(s.port))

	return c.Blob(http.StatusOK, s.contentType, []byte(s.content))
}

// Stop closes the listener and drains in-flight responses within the
// context's deadline; when the deadline passes, remaining connections are
// closed forcibly.
func (s *WebServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		srv.Close()
		return fmt.Errorf("stopping web server on port %d: %w", s.port, err)
	}
	return nil
}
