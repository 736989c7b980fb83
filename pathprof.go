// Package pathprof runs bytecode programs under the path profiler and
// reports the control-flow paths each function exercised.
//
//	program, err := asm.LoadFile("loop.yaml")
//	if err != nil {
//	    return err
//	}
//	doc, err := pathprof.Profile(ctx, program, pathprof.WithArgs(10))
//	if err != nil {
//	    return err
//	}
//	report.Write(os.Stdout, doc, report.FormatText)
package pathprof

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/risor-io/pathprof/asm"
	"github.com/risor-io/pathprof/bytecode"
	"github.com/risor-io/pathprof/profiler"
	"github.com/risor-io/pathprof/report"
	"github.com/risor-io/pathprof/vm"
)

// Option configures a profiling run.
type Option func(*options)

type options struct {
	args                 []int64
	output               io.Writer
	logger               zerolog.Logger
	maxFrameDepth        int
	contextCheckInterval *int
}

func collectOptions(opts ...Option) *options {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) vmOpts() []vm.Option {
	opts := []vm.Option{vm.WithLogger(o.logger)}
	if o.output != nil {
		opts = append(opts, vm.WithOutput(o.output))
	}
	if o.maxFrameDepth > 0 {
		opts = append(opts, vm.WithMaxFrameDepth(o.maxFrameDepth))
	}
	if o.contextCheckInterval != nil {
		opts = append(opts, vm.WithContextCheckInterval(*o.contextCheckInterval))
	}
	return opts
}

// WithArgs sets the arguments passed to the entry function.
func WithArgs(args ...int64) Option {
	return func(o *options) {
		o.args = append(o.args, args...)
	}
}

// WithOutput sets the writer that receives the program's print output.
// By default it is discarded.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithLogger sets the logger shared by the VM and the profiler.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxFrameDepth limits the call depth of the profiled program.
func WithMaxFrameDepth(depth int) Option {
	return func(o *options) {
		o.maxFrameDepth = depth
	}
}

// WithContextCheckInterval sets how many instructions run between checks
// for context cancellation.
func WithContextCheckInterval(interval int) Option {
	return func(o *options) {
		o.contextCheckInterval = &interval
	}
}

// Profile validates and runs program with the path profiler attached, and
// returns the ranked paths. A run that fails produces no document.
func Profile(ctx context.Context, program *bytecode.Program, opts ...Option) (*report.Document, error) {
	o := collectOptions(opts...)
	if err := program.Validate(); err != nil {
		return nil, err
	}
	machine, err := vm.New(program, o.vmOpts()...)
	if err != nil {
		return nil, err
	}
	engine := profiler.New(profiler.WithLogger(o.logger))
	if err := engine.Instrument(machine, program); err != nil {
		return nil, err
	}
	result, err := machine.Run(ctx, o.args...)
	if err != nil {
		return nil, err
	}
	return report.New(program.Name(), engine.Report(),
		report.WithResult(result),
		report.WithSteps(machine.Steps()),
	)
}

// ProfileFile loads the program at path and profiles it.
func ProfileFile(ctx context.Context, path string, opts ...Option) (*report.Document, error) {
	program, err := asm.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Profile(ctx, program, opts...)
}
