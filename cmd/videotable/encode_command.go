package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"videotable/internal/config"
	"videotable/internal/pipeline"
)

type encodeResult struct {
	BatchID  string           `json:"batch_id"`
	BatchDir string           `json:"batch_dir"`
	Jobs     []pipeline.Stats `json:"jobs"`
	Error    string           `json:"error,omitempty"`
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var tablePath string
	var rulesPath string
	var batchID string
	var onError string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode the arrays described by a rules file into video containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if policy := strings.ToLower(strings.TrimSpace(onError)); policy != "" {
				if policy != config.OnErrorRaise && policy != config.OnErrorSkip {
					return fmt.Errorf("--on-error must be %q or %q", config.OnErrorRaise, config.OnErrorSkip)
				}
				cfg.Pipeline.OnError = policy
			}
			jobs, err := pipeline.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			batch := strings.TrimSpace(batchID)
			if batch == "" {
				batch = uuid.NewString()
			}
			pipe, err := ctx.pipeline()
			if err != nil {
				return err
			}

			stats, runErr := pipe.EncodeBatch(cmd.Context(), tablePath, batch, jobs)
			result := encodeResult{BatchID: batch, BatchDir: pipe.BatchDir(batch), Jobs: stats}
			if runErr != nil {
				result.Error = runErr.Error()
			}
			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return runErr
			}
			out := cmd.OutOrStdout()
			if len(stats) > 0 {
				fmt.Fprintln(out, renderStats(stats, isTerminal(out)))
			}
			fmt.Fprintf(out, "Batch %s written to %s\n", batch, result.BatchDir)
			return runErr
		},
	}

	cmd.Flags().StringVar(&tablePath, "table", "", "Source table file (SQLite)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Conversion rules file (TOML)")
	cmd.Flags().StringVar(&batchID, "batch", "", "Batch identifier (default: random UUID)")
	cmd.Flags().StringVar(&onError, "on-error", "", "Override pipeline.on_error (raise or skip)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func renderStats(stats []pipeline.Stats, terminal bool) string {
	spec := tableSpec{
		Headers: []string{"Array", "Status", "Container", "Original", "Compressed", "Ratio", "Bits/sample", "Write time"},
		Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	}
	var original, compressed int64
	var elapsed time.Duration
	for _, s := range stats {
		container := "-"
		if s.Container != "" {
			container = filepath.Base(s.Container)
		}
		status := jobStatusLabel(s.Status)
		if s.ErrorLabel != "" {
			status += " (" + s.ErrorLabel + ")"
		}
		spec.Rows = append(spec.Rows, []string{
			s.Name,
			status,
			container,
			formatBytes(s.OriginalBytes),
			formatBytes(s.CompressedBytes),
			formatRatio(s.CompressionRatio),
			fmt.Sprintf("%.3f", s.BitsPerSample),
			s.WriteDuration.Round(time.Millisecond).String(),
		})
		original += s.OriginalBytes
		compressed += s.CompressedBytes
		elapsed += s.WriteDuration
	}
	if len(stats) > 1 {
		ratio := 0.0
		if compressed > 0 {
			ratio = float64(original) / float64(compressed)
		}
		spec.Footer = []string{"Total", "", "", formatBytes(original), formatBytes(compressed), formatRatio(ratio), "", elapsed.Round(time.Millisecond).String()}
	}
	return renderTable(spec, terminal)
}
