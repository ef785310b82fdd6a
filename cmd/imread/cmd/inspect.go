package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/imread/internal/export"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
)

// inspectCmd lists or extracts frames of a tensor dump.
var inspectCmd = &cobra.Command{
	Use:   "inspect <dump file>",
	Short: "List the frames of a tensor dump written by read --dump",
	Long: `List the frames stored in a zstd tensor stream written by "imread read --dump".

Each frame holds the RGB buffer of one decoded image together with its input
index. A single frame can be written back to an image file with --extract.

Examples:
  imread inspect pixels.rgb.zst
  imread inspect pixels.rgb.zst --format json
  imread inspect pixels.rgb.zst --extract 3 --to frame3.png`,
	Args: cobra.ExactArgs(1),
	RunE: runInspectCommand,
}

// frameInfo is the listing entry of one frame.
type frameInfo struct {
	Index    uint32 `json:"index"`
	Height   uint32 `json:"height"`
	Width    uint32 `json:"width"`
	Channels uint8  `json:"channels"`
	Bytes    int    `json:"bytes"`
}

func runInspectCommand(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("format")
	extract, _ := cmd.Flags().GetInt("extract")
	target, _ := cmd.Flags().GetString("to")

	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
	if extract >= 0 && target == "" {
		return errors.New("--extract requires --to")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open dump file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := export.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read dump file: %w", err)
	}
	defer r.Close()

	var infos []frameInfo
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read frame %d: %w", len(infos), err)
		}
		infos = append(infos, frameInfo{
			Index:    frame.Index,
			Height:   frame.Height,
			Width:    frame.Width,
			Channels: frame.Channels,
			Bytes:    frame.Len(),
		})
		if extract >= 0 && int(frame.Index) == extract {
			if err := saveFrame(frame, target); err != nil {
				return err
			}
			slog.Info("Extracted frame", "index", frame.Index, "path", target)
			return nil
		}
	}

	if extract >= 0 {
		return fmt.Errorf("no frame with index %d", extract)
	}
	return printFrames(cmd.OutOrStdout(), outputFormat, infos)
}

func printFrames(w io.Writer, outputFormat string, infos []frameInfo) error {
	if outputFormat == "json" {
		if infos == nil {
			infos = []frameInfo{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	var total int
	for _, fi := range infos {
		_, _ = fmt.Fprintf(w, "[%d] %dx%dx%d %d bytes\n", fi.Index, fi.Height, fi.Width, fi.Channels, fi.Bytes)
		total += fi.Bytes
	}
	_, _ = fmt.Fprintf(w, "%d frames, %d bytes\n", len(infos), total)
	return nil
}

// saveFrame writes an RGB frame as an image; the encoder follows the
// extension of path.
func saveFrame(frame export.Frame, path string) error {
	if frame.Channels != 3 {
		return fmt.Errorf("cannot extract frame with %d channels", frame.Channels)
	}
	w, h := int(frame.Width), int(frame.Height)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i < len(frame.Data); i, j = i+3, j+4 {
		img.Pix[j] = frame.Data[i]
		img.Pix[j+1] = frame.Data[i+1]
		img.Pix[j+2] = frame.Data[i+2]
		img.Pix[j+3] = 0xff
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save frame: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	inspectCmd.Flags().Int("extract", -1, "input index of a frame to write as an image")
	inspectCmd.Flags().String("to", "", "image file receiving the extracted frame (png, jpg, gif, tif, bmp)")
}
