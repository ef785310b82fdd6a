package workerpool

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/imread/internal/metrics"
)

// Config describes the shared pool.
type Config struct {
	NumThreads int `json:"num_threads" yaml:"num_threads"`
	// Applied is true only for the call that actually sized the pool.
	Applied bool `json:"applied" yaml:"applied"`
}

// The shared pool is created at most once per process. A Configure call
// after creation is a no-op that reports the configuration in effect.
var shared struct {
	mu   sync.Mutex
	pool *Pool
}

// Configure sizes the shared pool to n workers if it has not been created
// yet. Later calls, with any n, leave the pool unchanged and return its
// existing configuration with Applied set to false. A non-positive n is
// always rejected.
func Configure(n int) (Config, error) {
	if n <= 0 {
		return Config{}, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.pool != nil {
		if n != shared.pool.Size() {
			slog.Debug("worker pool already configured, ignoring requested size",
				"requested", n, "effective", shared.pool.Size())
		}
		return Config{NumThreads: shared.pool.Size()}, nil
	}

	p, err := New(n)
	if err != nil {
		return Config{}, err
	}
	shared.pool = p
	metrics.SetPoolWorkers(n)
	return Config{NumThreads: n, Applied: true}, nil
}

// Shared returns the process-wide pool, creating it with DefaultSize workers
// if Configure was never called.
func Shared() *Pool {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.pool == nil {
		// DefaultSize is always positive.
		shared.pool, _ = New(DefaultSize())
		metrics.SetPoolWorkers(shared.pool.Size())
	}
	return shared.pool
}

// Current returns the shared pool configuration without creating the pool.
// ok is false while the pool does not exist.
func Current() (cfg Config, ok bool) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.pool == nil {
		return Config{}, false
	}
	return Config{NumThreads: shared.pool.Size()}, true
}
