// Package responder runs a configured set of network diagnostic servers
// (TCP echo listeners and fixed-content HTTP responders) as one group with
// coordinated startup and graceful shutdown.
package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/simpletcp/responder/config"
	"github.com/simpletcp/responder/server"
)

var (
	ErrAlreadyStarted     = errors.New("already started")
	ErrNoServers          = errors.New("no servers configured")
	ErrTerminationTimeout = errors.New("termination timeout")
)

// Manager owns a set of server instances and runs them as one unit. Start
// launches every instance concurrently and blocks until all of them have
// stopped, the context is canceled, or Shutdown is called.
type Manager struct {
	instancesMu struct {
		sync.RWMutex
		instances []server.Instance
	}

	startedMu struct {
		sync.RWMutex
		started bool
	}

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	termCh chan struct{}
	errChs []chan error

	logger *slog.Logger
}

// New builds a manager with one instance per configured spec. Specs with an
// unknown kind are skipped with a warning rather than failing the rest.
func New(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		shutdownCh: make(chan struct{}),
		logger:     logger,
	}

	for _, spec := range cfg.Servers {
		inst, err := server.New(spec, logger)
		if err != nil {
			logger.Warn("skipping server", "kind", spec.Kind, "port", spec.Port, "error", err)
			continue
		}
		m.Add(inst)
	}

	logger.Info("created server instances", "count", len(m.Instances()))

	return m
}

// Add adds an instance to the manager.
// If the manager is already started, Add does nothing.
func (m *Manager) Add(inst server.Instance) {
	m.startedMu.RLock()
	if m.startedMu.started {
		m.startedMu.RUnlock()
		return
	}
	m.startedMu.RUnlock()

	m.instancesMu.Lock()
	m.instancesMu.instances = append(m.instancesMu.instances, inst)
	m.instancesMu.Unlock()
}

// Instances returns a copy of the managed instance list.
func (m *Manager) Instances() []server.Instance {
	m.instancesMu.RLock()
	defer m.instancesMu.RUnlock()
	return append([]server.Instance(nil), m.instancesMu.instances...)
}

// Shutdown requests a graceful stop of all instances. It is safe to call
// more than once and from any goroutine; calls after the first are no-ops.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownCh)
	})
}

// Start prints the operational summary, starts all instances concurrently,
// and blocks until every serving goroutine has ended, the given context is
// canceled, or Shutdown is called. It then stops all instances within the
// termination timeout and returns their aggregated errors. An error in one
// instance's serving goroutine does not cancel the others.
// If the manager is already started, Start returns ErrAlreadyStarted.
func (m *Manager) Start(ctx context.Context, opts ...Option) error {
	m.startedMu.RLock()
	if m.startedMu.started {
		m.startedMu.RUnlock()
		return ErrAlreadyStarted
	}
	m.startedMu.RUnlock()

	m.startedMu.Lock()
	m.startedMu.started = true
	m.startedMu.Unlock()

	instances := m.Instances()
	if len(instances) == 0 {
		return ErrNoServers
	}

	opt := newOption(opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.printSummary(opt.summaryWriter, instances)
	m.logger.Info("starting servers", "count", len(instances))

	m.termCh = make(chan struct{}, len(instances))
	m.errChs = make([]chan error, len(instances))
	for i, inst := range instances {
		m.errChs[i] = make(chan error, 1)

		go func(i int, inst server.Instance) {
			err := inst.Start(ctx)
			m.termCh <- struct{}{}
			m.errChs[i] <- err
		}(i, inst)
	}

	remaining := len(instances)
wait:
	for remaining > 0 {
		select {
		case <-ctx.Done():
			break wait
		case <-m.shutdownCh:
			break wait
		case <-m.termCh:
			remaining--
		}
	}

	cancel()
	m.logger.Info("shutting down all servers")

	termCtx, termCancel := context.WithTimeout(context.Background(), opt.terminationTimeout)
	defer termCancel()

	termErrCh := make(chan error, 1)

	go func() {
		if err := m.stop(termCtx, instances); err != nil {
			termErrCh <- fmt.Errorf("stopped with errors: %w", err)
			return
		}
		close(termErrCh)
	}()

	select {
	case <-termCtx.Done():
		return ErrTerminationTimeout
	case err, ok := <-termErrCh:
		if ok && err != nil {
			return err
		}
		m.logger.Info("all servers stopped")
		return nil
	}
}

// stop stops every instance concurrently and drains the serving errors.
// An instance that fails to stop cleanly is reported but does not block
// stopping the rest.
func (m *Manager) stop(ctx context.Context, instances []server.Instance) error {
	var errMu struct {
		mu   sync.Mutex
		errs *multierror.Error
	}

	var wg sync.WaitGroup

	for _, inst := range instances {
		wg.Add(1)

		go func(inst server.Instance) {
			defer wg.Done()

			if err := inst.Stop(ctx); err != nil {
				m.logger.Error("failed to stop server", "kind", inst.Kind(), "port", inst.Port(), "error", err)

				errMu.mu.Lock()
				errMu.errs = multierror.Append(errMu.errs, err)
				errMu.mu.Unlock()
			}
		}(inst)
	}

	wg.Wait()

	for _, errCh := range m.errChs {
		wg.Add(1)

		go func(errCh chan error) {
			defer wg.Done()

			err := <-errCh

			errMu.mu.Lock()
			errMu.errs = multierror.Append(errMu.errs, err)
			errMu.mu.Unlock()
		}(errCh)
	}

	wg.Wait()

	return errMu.errs.ErrorOrNil()
}

// printSummary writes the human-readable listing of active instances and,
// when any instance binds the wildcard address, the host's non-loopback
// IPv4 addresses. Observability only; enumeration failure prints nothing.
func (m *Manager) printSummary(w io.Writer, instances []server.Instance) {
	banner := strings.Repeat("=", 60)

	fmt.Fprintln(w)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, "SimpleTCPResponder - Active Servers")
	fmt.Fprintln(w, banner)

	hasWildcard := false
	for _, inst := range instances {
		if inst.BindAddress() == config.DefaultBindAddress {
			hasWildcard = true
		}
		fmt.Fprintf(w, "  %s: %s:%d\n", strings.ToUpper(inst.Kind()), inst.BindAddress(), inst.Port())
	}

	if hasWildcard {
		if ips := ActiveIPAddresses(); len(ips) > 0 {
			fmt.Fprintln(w, banner)
			fmt.Fprintln(w, "Active IP addresses on this system:")
			for _, ip := range ips {
				fmt.Fprintf(w, "  %s\n", ip)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Servers bound to 0.0.0.0 are accessible via any of the")
			fmt.Fprintln(w, "above IP addresses.")
		}
	}

	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, "Press Ctrl+C to stop all servers")
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w)
}
