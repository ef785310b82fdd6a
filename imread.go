// Package imread decodes batches of image files into RGB pixel arrays,
// spreading the work over a process-wide worker pool.
//
// Every entry point returns one result per input path in input order. A file
// that cannot be read or decoded never fails the call: Read leaves a nil in
// its slot, DecodeBatchVerbose and DecodeBatchBytes list it under Errors.
// Only invalid arguments, detected before any decoding starts, are returned
// as errors.
package imread

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/imread/internal/batch"
	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/MeKo-Tech/imread/internal/reconcile"
	"github.com/MeKo-Tech/imread/internal/workerpool"
)

// ErrInvalidPath is returned by ReadValues for a value that is not path-like.
var ErrInvalidPath = errors.New("invalid path value")

type (
	// Array is an (height, width, 3) uint8 tensor.
	Array = reconcile.Array
	// Verbose is the result of DecodeBatchVerbose.
	Verbose = reconcile.Verbose
	// Bytes is the result of DecodeBatchBytes.
	Bytes = reconcile.Bytes
	// PoolConfig describes the shared worker pool.
	PoolConfig = workerpool.Config
	// ProgressCallback receives per-item completion events.
	ProgressCallback = batch.ProgressCallback
)

// Option customizes a batch call.
type Option func(*options)

type options struct {
	numThreads *int
	logger     *slog.Logger
	progress   ProgressCallback
}

// WithNumThreads sizes the shared worker pool if it has not been sized yet.
// n must be positive.
func WithNumThreads(n int) Option {
	return func(o *options) { o.numThreads = &n }
}

// WithLogger sets the logger that receives per-item failure diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProgress reports item completion to cb.
func WithProgress(cb ProgressCallback) Option {
	return func(o *options) { o.progress = cb }
}

// ConfigurePool sizes the shared worker pool to n workers. Only the first
// call in a process takes effect; later calls return the configuration in
// effect with Applied set to false.
func ConfigurePool(n int) (PoolConfig, error) {
	return workerpool.Configure(n)
}

// Read decodes every path and returns a slice as long as paths. Entry i is
// the decoded image of paths[i], or nil if it could not be decoded.
func Read(paths []string, opts ...Option) ([]*Array, error) {
	outcomes, o, err := run(paths, opts)
	if err != nil {
		return nil, err
	}
	return reconcile.Tolerant(o.logger, outcomes), nil
}

// ReadValues is Read for path-like values: strings, fmt.Stringers and
// *os.File. Any other value fails the call before decoding starts.
func ReadValues(values []any, opts ...Option) ([]*Array, error) {
	paths, err := PathsOf(values)
	if err != nil {
		return nil, err
	}
	return Read(paths, opts...)
}

// DecodeBatchVerbose decodes every path and reports successes and failures
// separately, each tagged with its index in paths.
func DecodeBatchVerbose(paths []string, opts ...Option) (Verbose, error) {
	outcomes, o, err := run(paths, opts)
	if err != nil {
		return Verbose{}, err
	}
	return reconcile.Reporting(o.logger, outcomes), nil
}

// DecodeBatchBytes is DecodeBatchVerbose returning flat RGB buffers.
func DecodeBatchBytes(paths []string, opts ...Option) (Bytes, error) {
	outcomes, o, err := run(paths, opts)
	if err != nil {
		return Bytes{}, err
	}
	return reconcile.Flat(o.logger, outcomes), nil
}

// PathsOf converts path-like values to strings.
func PathsOf(values []any) ([]string, error) {
	paths := make([]string, len(values))
	for i, v := range values {
		switch p := v.(type) {
		case string:
			paths[i] = p
		case *os.File:
			if p == nil {
				return nil, fmt.Errorf("%w at index %d: nil *os.File", ErrInvalidPath, i)
			}
			paths[i] = p.Name()
		case fmt.Stringer:
			paths[i] = p.String()
		default:
			return nil, fmt.Errorf("%w at index %d: %T", ErrInvalidPath, i, v)
		}
	}
	return paths, nil
}

func run(paths []string, opts []Option) ([]decode.Outcome, options, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.numThreads != nil {
		if _, err := workerpool.Configure(*o.numThreads); err != nil {
			return nil, o, fmt.Errorf("failed to configure worker pool: %w", err)
		}
	}

	var batchOpts []batch.Option
	if o.progress != nil {
		batchOpts = append(batchOpts, batch.WithProgress(o.progress))
	}
	outcomes, err := batch.Decode(paths, batchOpts...)
	if err != nil {
		return nil, o, fmt.Errorf("batch decode failed: %w", err)
	}
	return outcomes, o, nil
}
