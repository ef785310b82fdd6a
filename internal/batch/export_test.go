package batch

import "github.com/MeKo-Tech/imread/internal/decode"

// withDecoder replaces the single-item decoder, letting tests control outcomes.
func withDecoder(fn func(path string) decode.Outcome) Option {
	return func(o *options) { o.decoder = fn }
}
