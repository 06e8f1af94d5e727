// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/colsort/config"
	"github.com/cardinalhq/colsort/internal/dataset"
	"github.com/cardinalhq/colsort/internal/filereader"
)

func init() {
	var (
		file       string
		delimiter  string
		sampleRows int
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the column schema inferred from a dataset sample",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, doneFx, err := setupTelemetry("colsort-schema")
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() { _ = doneFx() }()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !c.Flags().Changed("delimiter") {
				delimiter = cfg.Sorter.Delimiter
			}
			if sampleRows <= 0 {
				sampleRows = cfg.Sorter.SampleRows
			}
			return runSchema(ctx, c.OutOrStdout(), file, delimiter, sampleRows)
		},
	}

	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&file, "file", "", "Delimited-text file to inspect")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", `Field delimiter, a single byte or "\t"`)
	cmd.Flags().IntVar(&sampleRows, "sample-rows", 0, "Rows to sample (0 uses the configured default)")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required: %w", err))
	}
}

func runSchema(ctx context.Context, out io.Writer, file, delimiter string, sampleRows int) error {
	delim, err := dataset.ParseDelimiter(delimiter)
	if err != nil {
		return err
	}
	ds, err := dataset.NewFile(file, delim)
	if err != nil {
		return err
	}

	schema, err := filereader.InferSchema(ctx, ds, sampleRows)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tTYPE\tSAMPLED VALUES")
	for _, col := range schema.Columns() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", col.Index, col.Name, col.DataType, col.HasNonNull)
	}
	return w.Flush()
}
