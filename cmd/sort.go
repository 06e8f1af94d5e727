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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/colsort/config"
	"github.com/cardinalhq/colsort/internal/dataset"
	"github.com/cardinalhq/colsort/internal/filereader"
	"github.com/cardinalhq/colsort/internal/sortcache"
	"github.com/cardinalhq/colsort/internal/sorter"
	"github.com/cardinalhq/colsort/internal/sorting"
)

type sortOptions struct {
	file      string
	delimiter string
	columns   []int
	order     string
	from      uint64
	rows      uint64
	timeout   time.Duration
}

func init() {
	var opts sortOptions

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort a dataset by one or more columns and print the sorted row indices",
		Long: `Starts one background sort per --column and prints, for each, the
original row indices of the requested window of the sorted order.`,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, doneFx, err := setupTelemetry("colsort-sort")
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !c.Flags().Changed("delimiter") {
				opts.delimiter = cfg.Sorter.Delimiter
			}
			return runSort(ctx, cfg, c.OutOrStdout(), opts)
		},
	}

	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&opts.file, "file", "", "Delimited-text file to sort")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", `Field delimiter, a single byte or "\t"`)
	cmd.Flags().IntSliceVar(&opts.columns, "column", nil, "Zero-based index of a column to sort by (repeatable)")
	cmd.Flags().StringVar(&opts.order, "order", "asc", "Sort order: asc or desc")
	cmd.Flags().Uint64Var(&opts.from, "from", 0, "First rank to print")
	cmd.Flags().Uint64Var(&opts.rows, "rows", 20, "Number of ranks to print")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Give up after this long (0 waits forever)")

	for _, name := range []string{"file", "column"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Errorf("failed to mark %s flag as required: %w", name, err))
		}
	}
}

func runSort(ctx context.Context, cfg *config.Config, out io.Writer, opts sortOptions) error {
	delimiter, err := dataset.ParseDelimiter(opts.delimiter)
	if err != nil {
		return err
	}
	ds, err := dataset.NewFile(opts.file, delimiter)
	if err != nil {
		return err
	}
	order, err := sorting.ParseOrder(opts.order)
	if err != nil {
		return err
	}
	if len(opts.columns) == 0 {
		return errors.New("at least one --column is required")
	}

	// Column names come from a sample of the header. The sort jobs infer
	// their own schema independently.
	schema, err := filereader.InferSchema(ctx, ds, cfg.Sorter.SampleRows)
	if err != nil {
		return err
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	cache := sortcache.New(ctx, cfg.Cache.TTL,
		sorter.WithBatchSize(cfg.Sorter.BatchSize),
		sorter.WithSampleRows(cfg.Sorter.SampleRows),
	)
	defer func() {
		if err := cache.Close(); err != nil {
			slog.Warn("Failed to release sorters", slog.Any("error", err))
		}
	}()

	handles := make([]*sorter.Sorter, 0, len(opts.columns))
	for _, idx := range opts.columns {
		name := "column " + strconv.Itoa(idx)
		if col, err := schema.Column(idx); err == nil {
			name = col.Name
		}
		handles = append(handles, cache.Get(ctx, ds, idx, name, order))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		g.Go(func() error {
			return h.Wait(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for sort jobs: %w", err)
	}

	var errs *multierror.Error
	for _, h := range handles {
		if err := printSorted(out, h, opts.from, opts.rows); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func printSorted(out io.Writer, h *sorter.Sorter, from, n uint64) error {
	status := h.Status()
	header := fmt.Sprintf("# column %d %q order=%s", h.ColumnIndex(), h.ColumnName(), h.Order())
	if status.State != sorter.StateFinished {
		fmt.Fprintf(out, "%s status=%s\n", header, status)
		return fmt.Errorf("column %d: %s", h.ColumnIndex(), status)
	}

	total, _ := h.NumRows()
	rows, _ := h.SortedIndices(from, n)
	fmt.Fprintf(out, "%s rows=%d ranks=%d..%d\n", header, total, from, from+uint64(len(rows)))

	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = strconv.FormatUint(r, 10)
	}
	fmt.Fprintln(out, strings.Join(parts, " "))
	return nil
}
