// Package benchmark measures batch decode throughput at several worker pool
// sizes.
package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/imread/internal/batch"
	"github.com/MeKo-Tech/imread/internal/workerpool"
)

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64  // Currently allocated bytes
	TotalAllocBytes uint64  // Total allocated bytes (cumulative)
	SysBytes        uint64  // Total bytes from system
	NumGC           uint32  // Number of GC runs
	GCCPUFraction   float64 // Fraction of CPU time spent in GC
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		GCCPUFraction:   m.GCCPUFraction,
	}
}

// Result is the measurement of one pool size.
type Result struct {
	Threads    int
	Iterations int
	// Images is the batch length; Failed counts failed slots per iteration.
	Images       int
	Failed       int
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	// Speedup is relative to the first pool size of the run.
	Speedup float64
}

// PerBatch returns the mean duration of one batch.
func (r Result) PerBatch() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// Throughput returns decoded images per second over all iterations.
func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Images*r.Iterations) / r.Duration.Seconds()
}

// AllocatedKB is the cumulative allocation of the run in KiB.
func (r Result) AllocatedKB() uint64 {
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / 1024
}

// String returns a one-line summary.
func (r Result) String() string {
	return fmt.Sprintf("%2d threads: %d x %d images, avg: %v, %.1f images/sec, %.2fx, alloc: %d KB",
		r.Threads, r.Iterations, r.Images, r.PerBatch().Round(time.Microsecond),
		r.Throughput(), r.Speedup, r.AllocatedKB())
}

// Scaling decodes the same batch on pools of increasing size.
type Scaling struct {
	paths        []string
	threadCounts []int
}

// NewScaling creates a benchmark over paths for each of threadCounts.
func NewScaling(paths []string, threadCounts []int) *Scaling {
	return &Scaling{paths: paths, threadCounts: threadCounts}
}

// DefaultThreadCounts returns 1, 2, 4, ... up to and including NumCPU.
func DefaultThreadCounts() []int {
	var counts []int
	n := runtime.NumCPU()
	for c := 1; c < n; c *= 2 {
		counts = append(counts, c)
	}
	return append(counts, n)
}

// Run decodes the batch iterations times per pool size. Each size gets a
// private pool so the shared pool stays untouched.
func (s *Scaling) Run(iterations int) ([]Result, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", iterations)
	}
	if len(s.paths) == 0 {
		return nil, errors.New("no images to benchmark")
	}
	if len(s.threadCounts) == 0 {
		return nil, errors.New("no thread counts to benchmark")
	}

	results := make([]Result, 0, len(s.threadCounts))
	for _, n := range s.threadCounts {
		r, err := s.runOne(n, iterations)
		if err != nil {
			return results, fmt.Errorf("benchmark with %d threads: %w", n, err)
		}
		if len(results) == 0 || r.Duration <= 0 {
			r.Speedup = 1
		} else {
			r.Speedup = float64(results[0].Duration) / float64(r.Duration)
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Scaling) runOne(threads, iterations int) (Result, error) {
	pool, err := workerpool.New(threads)
	if err != nil {
		return Result{}, err
	}
	defer pool.Close()

	// Force garbage collection before measuring
	runtime.GC()
	r := Result{Threads: threads, Iterations: iterations, Images: len(s.paths), MemoryBefore: GetMemoryStats()}

	start := time.Now()
	for range iterations {
		outcomes, err := batch.Decode(s.paths, batch.WithPool(pool))
		if err != nil {
			return Result{}, err
		}
		r.Failed = 0
		for _, o := range outcomes {
			if !o.OK() {
				r.Failed++
			}
		}
	}
	r.Duration = time.Since(start)
	r.MemoryAfter = GetMemoryStats()
	return r, nil
}

// PrintResults writes a human-readable table with system information.
func PrintResults(w io.Writer, results []Result) {
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 72))
	_, _ = fmt.Fprintln(w, "Batch decode scaling")
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 72))
	_, _ = fmt.Fprintf(w, "GOOS: %s  GOARCH: %s  NumCPU: %d  Go: %s\n\n",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())

	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No benchmark results available")
		return
	}
	for _, r := range results {
		_, _ = fmt.Fprintln(w, r.String())
	}
	if failed := results[0].Failed; failed > 0 {
		_, _ = fmt.Fprintf(w, "\n%d of %d images failed to decode in every iteration\n", failed, results[0].Images)
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Throughput() > best.Throughput() {
			best = r
		}
	}
	_, _ = fmt.Fprintf(w, "\nBest throughput: %d threads (%.1f images/sec)\n", best.Threads, best.Throughput())
}

// WriteCSV writes one row per result.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"threads", "iterations", "images", "failed", "avg_batch_ms", "images_per_sec", "speedup", "alloc_kb"}}
	for _, r := range results {
		rows = append(rows, []string{
			strconv.Itoa(r.Threads),
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.Images),
			strconv.Itoa(r.Failed),
			strconv.FormatFloat(float64(r.PerBatch().Nanoseconds())/1e6, 'f', 3, 64),
			strconv.FormatFloat(r.Throughput(), 'f', 1, 64),
			strconv.FormatFloat(r.Speedup, 'f', 2, 64),
			strconv.FormatUint(r.AllocatedKB(), 10),
		})
	}
	return cw.WriteAll(rows)
}
