package reconcile

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func outcomesFrom(ok []bool) []decode.Outcome {
	out := make([]decode.Outcome, len(ok))
	for i, good := range ok {
		if good {
			out[i] = decode.Success(img(i+1, 1, byte(i)))
		} else {
			out[i] = decode.Failure(&decode.Error{Kind: decode.SourceError, Op: "decode", Err: errors.New("x")})
		}
	}
	return out
}

func TestReconcile_IndexAlignment(t *testing.T) {
	properties := gopter.NewProperties(nil)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	properties.Property("tolerant keeps length and nil marks failures", prop.ForAll(
		func(ok []bool) bool {
			out := Tolerant(quiet, outcomesFrom(ok))
			if len(out) != len(ok) {
				return false
			}
			for i, good := range ok {
				if good != (out[i] != nil) {
					return false
				}
				if good && out[i].Width() != i+1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("reporting partitions indices", prop.ForAll(
		func(ok []bool) bool {
			v := Reporting(quiet, outcomesFrom(ok))
			if len(v.Images)+len(v.Errors) != len(ok) {
				return false
			}
			for _, im := range v.Images {
				if !ok[im.Index] || int(im.Width) != im.Index+1 {
					return false
				}
			}
			for _, e := range v.Errors {
				if ok[e.Index] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
