package format

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genMixedCase(s string) gopter.Gen {
	return gen.SliceOfN(len(s), gen.Bool()).Map(func(upper []bool) string {
		var b strings.Builder
		for i, r := range s {
			if upper[i] {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteRune(r)
			}
		}
		return b.String()
	})
}

// TestResolveHint_CaseInsensitive verifies that extension case never changes the hint.
func TestResolveHint_CaseInsensitive(t *testing.T) {
	properties := gopter.NewProperties(nil)

	for ext, want := range extensions {
		properties.Property("case of ."+ext+" is ignored", prop.ForAll(
			func(stem, mixed string) bool {
				return ResolveHint(stem+"."+mixed) == want
			},
			gen.AlphaString(),
			genMixedCase(ext),
		))
	}

	properties.TestingRun(t)
}

// TestResolveHint_NeverPanics verifies the resolver is total over arbitrary strings.
func TestResolveHint_NeverPanics(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("always returns a hint", prop.ForAll(
		func(path string) bool {
			h := ResolveHint(path)
			return h == Unknown || h.Known()
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
