package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/imread/internal/format"
)

// DiscoveryOptions controls how command-line arguments expand to paths.
type DiscoveryOptions struct {
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
}

// DiscoverPaths expands args into the ordered list of files to decode.
//
// Directories expand to the image files they contain (sorted, optionally
// recursive). File arguments are kept even when they do not exist so that
// they produce a failed slot rather than vanishing from the batch. Exclude
// patterns apply to everything; include patterns, when given, replace the
// image-extension filter for directory entries.
func DiscoverPaths(args []string, opts DiscoveryOptions) ([]string, error) {
	var paths []string

	for _, arg := range args {
		// Stat failures fall through: decode reports the cause in the slot.
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			found, err := discoverInDirectory(arg, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
			}
			paths = append(paths, found...)
			continue
		}
		if !matchesAnyPattern(arg, opts.ExcludePatterns) {
			paths = append(paths, arg)
		}
	}

	return paths, nil
}

// discoverInDirectory walks dir in lexical order.
func discoverInDirectory(dir string, opts DiscoveryOptions) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIncludeFile(path, opts) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// shouldIncludeFile applies exclude patterns first, then include patterns or
// the image-extension filter.
func shouldIncludeFile(path string, opts DiscoveryOptions) bool {
	if matchesAnyPattern(path, opts.ExcludePatterns) {
		return false
	}
	if len(opts.IncludePatterns) == 0 {
		return format.ResolveHint(path) != format.Unknown
	}
	return matchesAnyPattern(path, opts.IncludePatterns)
}

// matchesAnyPattern matches the base name of path against glob patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
