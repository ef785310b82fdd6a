package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/MeKo-Tech/imread/internal/testutil"
)

// ManifestEntry records what decoding a generated file must produce.
type ManifestEntry struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	// Expect is "ok" or the decode error kind.
	Expect string `json:"expect"`
}

var fill = color.NRGBA{R: 200, G: 60, B: 20, A: 255}

var sizes = []struct{ w, h int }{{1, 1}, {17, 9}, {320, 240}}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "", "output directory (default: <project root>/testdata)")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate a decode test corpus covering every supported format.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	dir := *outDir
	if dir == "" {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, "testdata")
	}

	slog.Info("Starting test data generation", "dir", dir)

	manifest, err := generateCorpus(dir)
	if err != nil {
		slog.Error("Failed to generate test data", "error", err)
		os.Exit(1)
	}

	if *verbose {
		for _, e := range manifest {
			slog.Info("Generated", "path", e.Path, "expect", e.Expect)
		}
	}
	slog.Info("Test data generation completed", "files", len(manifest))
}

// generateCorpus writes images/<format>/ files, misnamed and corrupt
// samples, and manifest.json under dir.
func generateCorpus(dir string) ([]ManifestEntry, error) {
	var manifest []ManifestEntry

	for _, h := range []format.Hint{format.AVIF, format.JPEG, format.PNG, format.GIF, format.TIFF, format.BMP} {
		for _, s := range sizes {
			data, err := testutil.Encode(testutil.UniformImage(s.w, s.h, fill), h)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s %dx%d: %w", h, s.w, s.h, err)
			}
			rel := filepath.Join("images", h.String(), fmt.Sprintf("uniform_%dx%d%s", s.w, s.h, h.Extensions()[0]))
			if err := writeFile(dir, rel, data); err != nil {
				return nil, err
			}
			manifest = append(manifest, ManifestEntry{Path: rel, Format: h.String(), Width: s.w, Height: s.h, Expect: "ok"})
		}
	}

	// Unknown extension, resolved by sniffing.
	data, err := testutil.Encode(testutil.UniformImage(8, 8, fill), format.PNG)
	if err != nil {
		return nil, err
	}
	rel := filepath.Join("images", "misnamed", "png_payload.dat")
	if err := writeFile(dir, rel, data); err != nil {
		return nil, err
	}
	manifest = append(manifest, ManifestEntry{Path: rel, Format: format.PNG.String(), Width: 8, Height: 8, Expect: "ok"})

	for _, h := range []format.Hint{format.PNG, format.JPEG, format.GIF, format.BMP} {
		data, err := testutil.CorruptBytes(h)
		if err != nil {
			return nil, err
		}
		rel := filepath.Join("images", "corrupt", "truncated"+h.Extensions()[0])
		if err := writeFile(dir, rel, data); err != nil {
			return nil, err
		}
		manifest = append(manifest, ManifestEntry{Path: rel, Format: h.String(), Expect: "source_error"})
	}

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), out, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return manifest, nil
}

func writeFile(dir, rel string, data []byte) error {
	path := filepath.Join(dir, rel)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}
