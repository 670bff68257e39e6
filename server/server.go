// Package server implements the two server kinds: a TCP echo server and an
// HTTP server that answers every request with fixed content.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simpletcp/responder/config"
)

// ErrUnknownKind is returned by New for a spec whose kind is neither echo
// nor web.
var ErrUnknownKind = errors.New("unknown server kind")

var (
	_ Instance = (*EchoServer)(nil)
	_ Instance = (*WebServer)(nil)
)

// Instance is one runnable server bound to a spec. Start binds the listener
// and serves until the context is canceled or Stop is called; a stopped
// instance must not be restarted.
type Instance interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
	Kind() string
	BindAddress() string
	Port() int
}

// New constructs the instance matching the spec's kind. Specs are validated
// again here even though the configuration layer already did so.
func New(spec config.ServerSpec, logger *slog.Logger) (Instance, error) {
	switch spec.Kind {
	case config.KindEcho:
		return NewEchoServer(spec, logger)
	case config.KindWeb:
		return NewWebServer(spec, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}

// BindError reports a listener that could not be created.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %s", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
