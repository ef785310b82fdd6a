package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/imread/internal/batch"
	"github.com/MeKo-Tech/imread/internal/config"
	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/MeKo-Tech/imread/internal/export"
	"github.com/MeKo-Tech/imread/internal/reconcile"
	"github.com/MeKo-Tech/imread/internal/workerpool"
	"github.com/spf13/cobra"
)

// readCmd decodes a batch of image files.
var readCmd = &cobra.Command{
	Use:   "read [files or directories...]",
	Short: "Decode a batch of images to RGB",
	Long: `Decode image files in parallel and report one result per input, in input order.

Directories expand to the image files they contain. Files that cannot be
opened or decoded are reported as failed slots and logged as warnings; they
never abort the batch.

Examples:
  imread read a.png b.jpg
  imread read ./images --recursive --include "*.png" --format csv
  imread read ./images --threads 4 --stats --dump pixels.rgb.zst`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReadCommand,
}

// readOptions is the effective configuration of one read invocation.
type readOptions struct {
	Threads    int
	Format     string
	OutputFile string
	DumpFile   string
	Recursive  bool
	Include    []string
	Exclude    []string
	Progress   bool
	Stats      bool
}

// configToReadOptions applies explicitly set flags over the loaded config.
func configToReadOptions(cfg *config.Config, cmd *cobra.Command) readOptions {
	opts := readOptions{
		Threads:    cfg.Pool.NumThreads,
		Format:     cfg.Output.Format,
		OutputFile: cfg.Output.File,
		DumpFile:   cfg.Output.Dump,
		Recursive:  cfg.Read.Recursive,
		Include:    cfg.Read.Include,
		Exclude:    cfg.Read.Exclude,
		Progress:   cfg.Read.Progress,
		Stats:      cfg.Read.Stats,
	}

	if cmd.Flags().Changed("threads") {
		opts.Threads, _ = cmd.Flags().GetInt("threads")
	}
	if cmd.Flags().Changed("format") {
		opts.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		opts.OutputFile, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("dump") {
		opts.DumpFile, _ = cmd.Flags().GetString("dump")
	}
	if cmd.Flags().Changed("recursive") {
		opts.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("include") {
		opts.Include, _ = cmd.Flags().GetStringSlice("include")
	}
	if cmd.Flags().Changed("exclude") {
		opts.Exclude, _ = cmd.Flags().GetStringSlice("exclude")
	}
	if cmd.Flags().Changed("progress") {
		opts.Progress, _ = cmd.Flags().GetBool("progress")
	}
	if cmd.Flags().Changed("stats") {
		opts.Stats, _ = cmd.Flags().GetBool("stats")
	}

	return opts
}

func runReadCommand(cmd *cobra.Command, args []string) error {
	opts := configToReadOptions(GetConfig(), cmd)

	// Reject a bad format before spending time on decoding.
	if _, err := (batch.Report{}).Format(opts.Format); err != nil {
		return err
	}

	paths, err := batch.DiscoverPaths(args, batch.DiscoveryOptions{
		Recursive:       opts.Recursive,
		IncludePatterns: opts.Include,
		ExcludePatterns: opts.Exclude,
	})
	if err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}

	if opts.Threads != 0 {
		poolCfg, err := workerpool.Configure(opts.Threads)
		if err != nil {
			return fmt.Errorf("failed to configure worker pool: %w", err)
		}
		slog.Debug("Worker pool configured", "threads", poolCfg.NumThreads, "applied", poolCfg.Applied)
	}

	var decodeOpts []batch.Option
	if opts.Progress {
		decodeOpts = append(decodeOpts, batch.WithProgress(batch.NewConsoleProgress(cmd.ErrOrStderr(), "Decoding ")))
	}

	slog.Info("Decoding batch", "files", len(paths))
	start := time.Now()
	outcomes, err := batch.Decode(paths, decodeOpts...)
	if err != nil {
		return fmt.Errorf("batch decode failed: %w", err)
	}
	elapsed := time.Since(start)

	logFailures(outcomes)

	report := batch.NewReport(paths, outcomes)
	var stats batch.Stats
	if opts.Stats {
		stats = batch.CalculateStats(outcomes, elapsed, workerpool.Shared().Size())
		report.Stats = &stats
	}

	if err := report.Save(opts.Format, opts.OutputFile, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if opts.DumpFile != "" {
		n, err := export.DumpFile(opts.DumpFile, outcomes)
		if err != nil {
			return fmt.Errorf("failed to write tensor dump: %w", err)
		}
		slog.Info("Wrote tensor dump", "path", opts.DumpFile, "frames", n)
	}

	// Structured formats already carry the stats.
	if opts.Stats && (opts.Format == batch.FormatText || opts.Format == "") {
		stats.Print(cmd.ErrOrStderr())
	}

	return nil
}

// logFailures writes one warning per failed slot.
func logFailures(outcomes []decode.Outcome) {
	for i, o := range outcomes {
		if !o.OK() {
			reconcile.LogFailure(slog.Default(), i, o.Err)
		}
	}
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().IntP("threads", "t", 0, "worker threads for the shared pool (default: one per CPU)")

	readCmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml, csv")
	readCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	readCmd.Flags().String("dump", "", "write decoded RGB buffers to a zstd tensor stream")

	readCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	readCmd.Flags().StringSlice("include", []string{}, "file patterns to include from directories (default: known image extensions)")
	readCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")

	readCmd.Flags().Bool("progress", false, "show progress bar on stderr")
	readCmd.Flags().Bool("stats", false, "show processing statistics")
}
