// Package batch decodes many image files concurrently on a shared worker pool
// and returns one outcome per input path, in input order.
package batch

import (
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/MeKo-Tech/imread/internal/metrics"
	"github.com/MeKo-Tech/imread/internal/workerpool"
)

// Option customizes a Decode call.
type Option func(*options)

type options struct {
	pool     *workerpool.Pool
	progress ProgressCallback
	onItem   func(index int, out decode.Outcome)
	decoder  func(path string) decode.Outcome
}

// WithPool runs the batch on p instead of the shared pool.
func WithPool(p *workerpool.Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithProgress reports completion of individual items to cb.
func WithProgress(cb ProgressCallback) Option {
	return func(o *options) { o.progress = cb }
}

// WithItemHook calls fn with each outcome as soon as it is ready. fn runs on
// the worker goroutines and must be safe for concurrent use.
func WithItemHook(fn func(index int, out decode.Outcome)) Option {
	return func(o *options) { o.onItem = fn }
}

// Decode decodes every path and returns outcomes index-aligned with paths.
//
// Items are independent: a failure is recorded in its own slot and never
// affects another item. An empty input returns an empty slice without
// touching the worker pool. The only error is a closed pool passed via
// WithPool.
func Decode(paths []string, opts ...Option) ([]decode.Outcome, error) {
	if len(paths) == 0 {
		return []decode.Outcome{}, nil
	}

	o := options{decoder: decode.One}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pool == nil {
		o.pool = workerpool.Shared()
	}

	if o.progress != nil {
		o.progress.OnStart(len(paths))
		defer o.progress.OnComplete()
	}

	var completed atomic.Int64
	var failed atomic.Int64
	start := time.Now()

	outcomes, err := workerpool.MapOrdered(o.pool, paths, func(i int, path string) decode.Outcome {
		itemStart := time.Now()
		out := o.decoder(path)
		observe(path, out, time.Since(itemStart))

		if !out.OK() {
			failed.Add(1)
		}
		if o.onItem != nil {
			o.onItem(i, out)
		}
		if o.progress != nil {
			n := int(completed.Add(1))
			if !out.OK() {
				o.progress.OnError(i, out.Err)
			}
			o.progress.OnProgress(n, len(paths))
		}
		return out
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveBatch(len(paths), int(failed.Load()), time.Since(start))
	return outcomes, nil
}

func observe(path string, out decode.Outcome, d time.Duration) {
	if out.OK() {
		metrics.ObserveDecode(out.Image.Format.String(), "", len(out.Image.Data), d)
		return
	}
	metrics.ObserveDecode(format.ResolveHint(path).String(), string(out.Err.Kind), 0, d)
}
