package resolve

import (
	"io"

	"github.com/charmbracelet/log"
)

const (
	DefaultWorkers       = 20  // concurrent provider requests
	DefaultMaxIterations = 100 // expansion rounds before giving up
)

// Options configures an Engine.
type Options struct {
	Workers       int         // Maximum concurrent provider requests (default: 20)
	MaxIterations int         // Maximum expansion rounds (default: 100)
	Logger        *log.Logger // Progress and diagnostics (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}
