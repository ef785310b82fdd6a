package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/MeKo-Tech/imread/internal/decode"
)

// Stats summarizes a finished batch.
type Stats struct {
	Total            int           `json:"total" yaml:"total"`
	Decoded          int           `json:"decoded" yaml:"decoded"`
	Failed           int           `json:"failed" yaml:"failed"`
	IoErrors         int           `json:"io_errors" yaml:"io_errors"`
	SourceErrors     int           `json:"source_errors" yaml:"source_errors"`
	Bytes            int64         `json:"bytes" yaml:"bytes"`
	Workers          int           `json:"workers" yaml:"workers"`
	Duration         time.Duration `json:"duration_ns" yaml:"duration"`
	AveragePerImage  time.Duration `json:"average_per_image_ns" yaml:"average_per_image"`
	ThroughputPerSec float64       `json:"throughput_per_sec" yaml:"throughput_per_sec"`
}

// CalculateStats derives Stats from a batch's outcomes.
func CalculateStats(outcomes []decode.Outcome, duration time.Duration, workers int) Stats {
	s := Stats{Total: len(outcomes), Workers: workers, Duration: duration}
	for _, o := range outcomes {
		if o.OK() {
			s.Decoded++
			s.Bytes += int64(len(o.Image.Data))
			continue
		}
		s.Failed++
		switch o.Err.Kind {
		case decode.IoError:
			s.IoErrors++
		case decode.SourceError:
			s.SourceErrors++
		}
	}
	if s.Total > 0 && duration > 0 {
		s.AveragePerImage = duration / time.Duration(s.Total)
		s.ThroughputPerSec = float64(s.Total) / duration.Seconds()
	}
	return s
}

// Print writes a human-readable summary to w.
func (s Stats) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\nBatch statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total:      %d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Decoded:    %d\n", s.Decoded)
	_, _ = fmt.Fprintf(w, "  Failed:     %d (io: %d, source: %d)\n", s.Failed, s.IoErrors, s.SourceErrors)
	_, _ = fmt.Fprintf(w, "  RGB bytes:  %d\n", s.Bytes)
	_, _ = fmt.Fprintf(w, "  Workers:    %d\n", s.Workers)
	_, _ = fmt.Fprintf(w, "  Duration:   %v\n", s.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Per image:  %v\n", s.AveragePerImage.Round(time.Microsecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", s.ThroughputPerSec)
}
