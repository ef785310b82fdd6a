package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/imread/internal/batch"
	"github.com/MeKo-Tech/imread/internal/benchmark"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench [files or directories...]",
	Short: "Measure decode throughput at several worker counts",
	Long: `Decode the same batch repeatedly on worker pools of different sizes and
report throughput and speedup for each size.

Examples:
  imread bench ./images
  imread bench ./images --threads 1,2,4,8 --iterations 5 --csv scaling.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		threads, _ := cmd.Flags().GetIntSlice("threads")
		iterations, _ := cmd.Flags().GetInt("iterations")
		csvFile, _ := cmd.Flags().GetString("csv")

		recursive := cfg.Read.Recursive
		if cmd.Flags().Changed("recursive") {
			recursive, _ = cmd.Flags().GetBool("recursive")
		}
		if len(threads) == 0 {
			threads = benchmark.DefaultThreadCounts()
		}

		paths, err := batch.DiscoverPaths(args, batch.DiscoveryOptions{
			Recursive:       recursive,
			IncludePatterns: cfg.Read.Include,
			ExcludePatterns: cfg.Read.Exclude,
		})
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}

		slog.Info("Running scaling benchmark", "images", len(paths), "threads", threads, "iterations", iterations)
		results, err := benchmark.NewScaling(paths, threads).Run(iterations)
		if err != nil {
			return fmt.Errorf("benchmark failed: %w", err)
		}

		benchmark.PrintResults(cmd.OutOrStdout(), results)

		if csvFile != "" {
			f, err := os.Create(csvFile) //nolint:gosec // G304: output path is user supplied
			if err != nil {
				return fmt.Errorf("failed to create CSV file: %w", err)
			}
			if err := benchmark.WriteCSV(f, results); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to write CSV: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", csvFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntSlice("threads", nil, "worker counts to compare (default: 1, 2, 4, ... NumCPU)")
	benchCmd.Flags().Int("iterations", 3, "batches decoded per worker count")
	benchCmd.Flags().String("csv", "", "also write results as CSV to this file")
	benchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
}
