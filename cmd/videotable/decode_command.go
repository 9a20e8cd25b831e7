package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type decodeResult struct {
	BatchID string `json:"batch_id"`
	Name    string `json:"name"`
	Output  string `json:"output"`
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var batchDir string
	var batchID string
	var names []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Reconstruct arrays of a batch into table files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := strings.TrimSpace(batchDir)
			if root == "" {
				root = cfg.Paths.OutputDir
			}
			pipe, err := ctx.pipeline()
			if err != nil {
				return err
			}

			results := make([]decodeResult, 0, len(names))
			for _, name := range names {
				out, err := pipe.DecodeOne(cmd.Context(), root, batchID, name)
				if err != nil {
					return fmt.Errorf("decode %s: %w", name, err)
				}
				results = append(results, decodeResult{BatchID: batchID, Name: name, Output: out})
				if !jsonOutput {
					fmt.Fprintf(cmd.OutOrStdout(), "Reconstructed %s: %s\n", name, out)
				}
			}
			if jsonOutput {
				return writeJSON(cmd, results)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&batchDir, "batch-dir", "", "Directory holding batches (default: paths.output_dir)")
	cmd.Flags().StringVar(&batchID, "batch", "", "Batch identifier")
	cmd.Flags().StringSliceVar(&names, "name", nil, "Array name to reconstruct (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	_ = cmd.MarkFlagRequired("batch")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
