package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"videotable/internal/catalog"
)

type statusEntry struct {
	Array            string    `json:"array"`
	Operation        string    `json:"operation"`
	Status           string    `json:"status"`
	Container        string    `json:"container,omitempty"`
	OriginalBytes    int64     `json:"original_bytes"`
	CompressedBytes  int64     `json:"compressed_bytes"`
	CompressionRatio float64   `json:"compression_ratio"`
	BitsPerSample    float64   `json:"bits_per_sample"`
	DurationMS       int64     `json:"duration_ms"`
	ErrorLabel       string    `json:"error_label,omitempty"`
	Message          string    `json:"message,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var batchID string
	var all bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorded job runs of a batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			batch := strings.TrimSpace(batchID)
			batchDir := filepath.Join(cfg.Paths.OutputDir, batch)
			if _, err := os.Stat(filepath.Join(batchDir, catalog.FileName)); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no catalog for batch %q under %s", batch, cfg.Paths.OutputDir)
				}
				return err
			}
			store, err := catalog.Open(batchDir)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), batch)
			if err != nil {
				return err
			}
			if !all {
				entries = catalog.Latest(entries)
			}

			if jsonOutput {
				out := make([]statusEntry, 0, len(entries))
				for _, e := range entries {
					out = append(out, statusEntry{
						Array:            e.Array,
						Operation:        e.Operation,
						Status:           e.Status,
						Container:        e.Container,
						OriginalBytes:    e.OriginalBytes,
						CompressedBytes:  e.CompressedBytes,
						CompressionRatio: e.CompressionRatio,
						BitsPerSample:    e.BitsPerSample,
						DurationMS:       e.Duration.Milliseconds(),
						ErrorLabel:       e.ErrorLabel,
						Message:          e.Message,
						RecordedAt:       e.RecordedAt,
					})
				}
				return writeJSON(cmd, out)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Batch %s has no recorded runs\n", batch)
				return nil
			}
			fmt.Fprintln(out, renderCatalog(entries, isTerminal(out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "Batch identifier")
	cmd.Flags().BoolVar(&all, "all", false, "Show every run instead of the latest per array")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("batch")
	return cmd
}

func renderCatalog(entries []catalog.Entry, terminal bool) string {
	spec := tableSpec{
		Headers: []string{"Array", "Operation", "Status", "Original", "Compressed", "Ratio", "Duration", "Recorded", "Error"},
		Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	}
	for _, e := range entries {
		errText := "-"
		if e.ErrorLabel != "" {
			errText = e.ErrorLabel
		}
		spec.Rows = append(spec.Rows, []string{
			e.Array,
			e.Operation,
			jobStatusLabel(e.Status),
			formatBytes(e.OriginalBytes),
			formatBytes(e.CompressedBytes),
			formatRatio(e.CompressionRatio),
			e.Duration.String(),
			e.RecordedAt.Local().Format("2006-01-02 15:04:05"),
			errText,
		})
	}
	return renderTable(spec, terminal)
}
