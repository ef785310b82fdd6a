package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/imread/internal/decode"
	"gopkg.in/yaml.v3"
)

// Report output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// ReportItem describes the outcome for one input path.
type ReportItem struct {
	Index     int    `json:"index"                yaml:"index"`
	Path      string `json:"path"                 yaml:"path"`
	Status    string `json:"status"               yaml:"status"`
	Format    string `json:"format,omitempty"     yaml:"format,omitempty"`
	Width     uint32 `json:"width,omitempty"      yaml:"width,omitempty"`
	Height    uint32 `json:"height,omitempty"     yaml:"height,omitempty"`
	Bytes     int    `json:"bytes,omitempty"      yaml:"bytes,omitempty"`
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"      yaml:"error,omitempty"`
}

// Report is the serializable summary of a batch.
type Report struct {
	Items []ReportItem `json:"items"           yaml:"items"`
	Stats *Stats       `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// NewReport pairs paths with their outcomes. Both slices must be index-aligned.
func NewReport(paths []string, outcomes []decode.Outcome) Report {
	items := make([]ReportItem, len(outcomes))
	for i, o := range outcomes {
		item := ReportItem{Index: i, Path: paths[i]}
		if o.OK() {
			item.Status = "ok"
			item.Format = o.Image.Format.String()
			item.Width = o.Image.Width
			item.Height = o.Image.Height
			item.Bytes = len(o.Image.Data)
		} else {
			item.Status = "failed"
			item.ErrorKind = string(o.Err.Kind)
			item.Error = o.Err.Error()
		}
		items[i] = item
	}
	return Report{Items: items}
}

// Format renders the report as text, json, yaml or csv.
func (r Report) Format(format string) (string, error) {
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		return string(b) + "\n", err
	case FormatYAML:
		b, err := yaml.Marshal(r)
		return string(b), err
	case FormatCSV:
		return r.formatCSV()
	case FormatText, "":
		return r.formatText(), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func (r Report) formatCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{{"index", "path", "status", "format", "width", "height", "error_kind", "error"}}
	for _, it := range r.Items {
		rows = append(rows, []string{
			strconv.Itoa(it.Index),
			it.Path,
			it.Status,
			it.Format,
			strconv.FormatUint(uint64(it.Width), 10),
			strconv.FormatUint(uint64(it.Height), 10),
			it.ErrorKind,
			it.Error,
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r Report) formatText() string {
	var b strings.Builder
	for _, it := range r.Items {
		if it.Status == "ok" {
			fmt.Fprintf(&b, "[%d] %s: %s %dx%d\n", it.Index, it.Path, it.Format, it.Width, it.Height)
		} else {
			fmt.Fprintf(&b, "[%d] %s: FAILED (%s) %s\n", it.Index, it.Path, it.ErrorKind, it.Error)
		}
	}
	return b.String()
}

// Save writes the formatted report to outputFile, or to stdout when empty.
func (r Report) Save(format, outputFile string, stdout io.Writer) error {
	out, err := r.Format(format)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	if outputFile == "" {
		_, err = io.WriteString(stdout, out)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
