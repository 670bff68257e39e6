package responder

import (
	"io"
	"os"
	"time"
)

const defaultTerminationTimeout = 10 * time.Second

var _ Option = (*funcOption)(nil)

// Option controls how Manager.Start behaves.
type Option interface {
	apply(*option)
}

type option struct {
	isTerminationTimeoutSet bool
	terminationTimeout      time.Duration

	summaryWriter io.Writer
}

type funcOption struct {
	f func(*option)
}

func (fo *funcOption) apply(o *option) {
	fo.f(o)
}

func newFuncOption(f func(*option)) *funcOption {
	return &funcOption{
		f: f,
	}
}

func newOption(opts ...Option) *option {
	o := &option{}
	for _, opt := range opts {
		opt.apply(o)
	}

	if !o.isTerminationTimeoutSet {
		o.terminationTimeout = defaultTerminationTimeout
	}

	if o.summaryWriter == nil {
		o.summaryWriter = os.Stdout
	}

	return o
}

// WithTerminationTimeout returns an Option that specifies the timeout duration for the termination.
func WithTerminationTimeout(duration time.Duration) Option {
	return newFuncOption(func(o *option) {
		o.isTerminationTimeoutSet = true
		o.terminationTimeout = duration
	})
}

// WithSummaryWriter returns an Option that specifies where the operational
// summary is printed before startup. The default is os.Stdout.
func WithSummaryWriter(w io.Writer) Option {
	return newFuncOption(func(o *option) {
		o.summaryWriter = w
	})
}
