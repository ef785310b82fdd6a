// Package reconcile turns the ordered outcomes of a batch into the shapes
// handed to callers: a tolerant slice with nil placeholders, or a reporting
// structure that lists successes and failures separately.
//
// Pixel buffers are moved, never copied: an Array views the same bytes the
// decoder produced.
package reconcile

import (
	"log/slog"

	"github.com/MeKo-Tech/imread/internal/decode"
)

// Array is an (height, width, 3) uint8 tensor in row-major order.
type Array struct {
	Data  []byte `json:"data,omitempty" yaml:"-"`
	Shape [3]int `json:"shape"          yaml:"shape"`
}

// Wrap builds an Array header around img's buffer.
func Wrap(img *decode.Image) *Array {
	return &Array{
		Data:  img.Data,
		Shape: [3]int{int(img.Height), int(img.Width), decode.Channels},
	}
}

// Height returns the first dimension.
func (a *Array) Height() int { return a.Shape[0] }

// Width returns the second dimension.
func (a *Array) Width() int { return a.Shape[1] }

// At returns the RGB triplet at row y, column x.
func (a *Array) At(y, x int) [3]byte {
	off := (y*a.Shape[1] + x) * a.Shape[2]
	return [3]byte{a.Data[off], a.Data[off+1], a.Data[off+2]}
}

// Image is one success in a reporting result.
type Image struct {
	Index  int    `json:"index"  yaml:"index"`
	Array  *Array `json:"array"  yaml:"array"`
	Width  uint32 `json:"width"  yaml:"width"`
	Height uint32 `json:"height" yaml:"height"`
}

// FlatImage is one success in a byte-only reporting result.
type FlatImage struct {
	Index  int    `json:"index"          yaml:"index"`
	Data   []byte `json:"data,omitempty" yaml:"-"`
	Width  uint32 `json:"width"          yaml:"width"`
	Height uint32 `json:"height"         yaml:"height"`
}

// Failure is one failed item in a reporting result.
type Failure struct {
	Index   int         `json:"index"   yaml:"index"`
	Kind    decode.Kind `json:"kind"    yaml:"kind"`
	Path    string      `json:"path"    yaml:"path"`
	Message string      `json:"message" yaml:"message"`
}

// Verbose is the reporting result with shaped arrays.
type Verbose struct {
	Images []Image   `json:"images" yaml:"images"`
	Errors []Failure `json:"errors" yaml:"errors"`
}

// Bytes is the reporting result with flat buffers.
type Bytes struct {
	Images []FlatImage `json:"images" yaml:"images"`
	Errors []Failure   `json:"errors" yaml:"errors"`
}

// Tolerant returns one entry per outcome: the wrapped image, or nil where
// decoding failed. Every failure is logged.
func Tolerant(logger *slog.Logger, outcomes []decode.Outcome) []*Array {
	logger = orDefault(logger)
	out := make([]*Array, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			out[i] = Wrap(o.Image)
			continue
		}
		LogFailure(logger, i, o.Err)
	}
	return out
}

// Reporting splits outcomes into successes and failures, each carrying its
// original index. Every failure is logged.
func Reporting(logger *slog.Logger, outcomes []decode.Outcome) Verbose {
	logger = orDefault(logger)
	v := Verbose{Images: []Image{}, Errors: []Failure{}}
	for i, o := range outcomes {
		if !o.OK() {
			v.Errors = append(v.Errors, failure(logger, i, o.Err))
			continue
		}
		v.Images = append(v.Images, Image{
			Index:  i,
			Array:  Wrap(o.Image),
			Width:  o.Image.Width,
			Height: o.Image.Height,
		})
	}
	return v
}

// Flat is Reporting without the array header: callers receive the raw
// buffer plus dimensions and reshape it themselves.
func Flat(logger *slog.Logger, outcomes []decode.Outcome) Bytes {
	logger = orDefault(logger)
	b := Bytes{Images: []FlatImage{}, Errors: []Failure{}}
	for i, o := range outcomes {
		if !o.OK() {
			b.Errors = append(b.Errors, failure(logger, i, o.Err))
			continue
		}
		b.Images = append(b.Images, FlatImage{
			Index:  i,
			Data:   o.Image.Data,
			Width:  o.Image.Width,
			Height: o.Image.Height,
		})
	}
	return b
}

func failure(logger *slog.Logger, index int, err *decode.Error) Failure {
	LogFailure(logger, index, err)
	return Failure{Index: index, Kind: err.Kind, Path: err.Path, Message: err.Error()}
}

// LogFailure writes the diagnostic for a failed item at warn level.
func LogFailure(logger *slog.Logger, index int, err *decode.Error) {
	orDefault(logger).Warn("image decode failed",
		"index", index,
		"path", err.Path,
		"kind", string(err.Kind),
		"error", err.Error(),
	)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
