package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List decodable image formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, h := range format.All {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-5s %s\n", h, strings.Join(h.Extensions(), " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
