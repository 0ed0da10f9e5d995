package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/identity-cli/internal/ingest"
)

var resolveOutput string

var resolveCmd = &cobra.Command{
	Use:   "resolve <input-file>",
	Short: "Resolve company identifiers for a CSV or XLSX batch",
	Long:  "Loads a tabular batch, populates the output identifier column for every row through the tier cascade, and writes the enriched batch as CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r, err := initResolver(env)
		if err != nil {
			return err
		}

		batch, err := ingest.LoadBatch(args[0])
		if err != nil {
			return err
		}
		if !contains(batch.Columns, cfg.Resolve.OutputColumn) {
			batch.Columns = append(batch.Columns, cfg.Resolve.OutputColumn)
		}

		stats, err := r.Resolve(ctx, batch)
		if err != nil {
			return err
		}

		out := resolveOutput
		if out == "" {
			out = defaultOutputPath(args[0])
		}
		if err := ingest.WriteCSVFile(out, batch); err != nil {
			return err
		}

		zap.L().Info("resolve: batch written",
			append([]zap.Field{zap.String("output", out)}, stats.Fields()...)...)
		return nil
	},
}

// defaultOutputPath swaps the input's extension for .resolved.csv.
func defaultOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".resolved.csv"
}

func contains(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "", "output CSV path (default <input>.resolved.csv)")
	rootCmd.AddCommand(resolveCmd)
}
