package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives item completion events from Decode.
// Methods may be called from several goroutines at once.
type ProgressCallback interface {
	// OnStart is called once with the number of items.
	OnStart(total int)
	// OnProgress is called after each item with the number finished so far.
	OnProgress(current, total int)
	// OnError is called for each failed item with its input index.
	OnError(index int, err error)
	// OnComplete is called once after all items finished.
	OnComplete()
}

// ConsoleProgress draws a progress bar to a writer.
type ConsoleProgress struct {
	mu       sync.Mutex
	w        io.Writer
	prefix   string
	width    int
	interval time.Duration
	started  time.Time
	lastDraw time.Time
	failures int
}

// NewConsoleProgress returns a progress bar writing to w (stderr if nil).
func NewConsoleProgress(w io.Writer, prefix string) *ConsoleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgress{w: w, prefix: prefix, width: 40, interval: 100 * time.Millisecond}
}

// WithUpdateInterval limits how often the bar is redrawn.
func (c *ConsoleProgress) WithUpdateInterval(d time.Duration) *ConsoleProgress {
	c.interval = d
	return c
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = time.Now()
	c.lastDraw = time.Time{}
	c.failures = 0
	_, _ = fmt.Fprintf(c.w, "%s0/%d\n", c.prefix, total)
}

func (c *ConsoleProgress) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if current < total && now.Sub(c.lastDraw) < c.interval {
		return
	}
	c.lastDraw = now
	c.draw(current, total, now)
}

func (c *ConsoleProgress) OnError(int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

func (c *ConsoleProgress) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.w, "\n%sdone in %v (%d failed)\n",
		c.prefix, time.Since(c.started).Round(time.Millisecond), c.failures)
}

func (c *ConsoleProgress) draw(current, total int, now time.Time) {
	if total <= 0 {
		return
	}
	filled := c.width * current / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	line := fmt.Sprintf("\r%s[%s] %d/%d", c.prefix, bar, current, total)
	if elapsed := now.Sub(c.started); elapsed > 0 && current > 0 {
		line += fmt.Sprintf(" %.1f/s", float64(current)/elapsed.Seconds())
	}
	_, _ = fmt.Fprint(c.w, line)
}

// LogProgress reports progress through slog every interval items.
type LogProgress struct {
	mu       sync.Mutex
	logger   *slog.Logger
	level    slog.Level
	interval int
	last     int
	started  time.Time
}

// NewLogProgress returns a slog-based reporter. A nil logger means slog.Default().
func NewLogProgress(logger *slog.Logger, level slog.Level, interval int) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10
	}
	return &LogProgress{logger: logger, level: level, interval: interval}
}

func (l *LogProgress) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.started = time.Now()
	l.last = 0
	l.logger.Log(context.Background(), l.level, "batch decode started", "total", total)
}

func (l *LogProgress) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current-l.last < l.interval && current != total {
		return
	}
	l.last = current
	l.logger.Log(context.Background(), l.level, "batch decode progress",
		"current", current,
		"total", total,
		"elapsed", time.Since(l.started).Round(time.Millisecond),
	)
}

// OnError is a no-op; failures are logged by the reconciler.
func (l *LogProgress) OnError(int, error) {}

func (l *LogProgress) OnComplete() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Log(context.Background(), l.level, "batch decode completed",
		"elapsed", time.Since(l.started).Round(time.Millisecond))
}
