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

package sorter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/colsort/internal/dataset"
	"github.com/cardinalhq/colsort/internal/filereader"
	"github.com/cardinalhq/colsort/internal/logctx"
	"github.com/cardinalhq/colsort/internal/sorting"
)

// run is the worker. It publishes exactly one terminal status, then closes
// doneCh.
func (s *Sorter) run(ctx context.Context, provider dataset.Provider, o options) {
	defer close(s.doneCh)
	defer s.cancel()

	ctx, span := tracer.Start(ctx, "sorter.sort_column",
		trace.WithAttributes(
			attribute.String("jobID", s.jobID),
			attribute.String("path", provider.Path()),
			attribute.Int("columnIndex", s.columnIndex),
			attribute.String("order", s.order.String()),
		),
	)
	defer span.End()

	ll := logctx.FromContext(ctx)
	ll.Debug("Sort job started")
	start := time.Now()

	result, err := s.sortColumn(ctx, provider, o)
	status := s.state.finish(result, err)
	span.SetAttributes(attribute.Int64("rowsRead", s.rowsRead.Load()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sort job did not finish")
	}

	elapsed := time.Since(start)
	outcome := "finished"
	switch {
	case errors.Is(err, filereader.ErrTerminated):
		outcome = "terminated"
		ll.Info("Sort job terminated", slog.Int64("rowsRead", s.rowsRead.Load()), slog.Duration("elapsed", elapsed))
	case err != nil:
		outcome = "error"
		ll.Warn("Sort job failed", slog.Any("error", err), slog.Duration("elapsed", elapsed))
	default:
		ll.Info("Sort job finished", slog.Int("rows", result.Len()), slog.Duration("elapsed", elapsed))
	}

	attrs := otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("order", s.order.String()),
	)
	sortJobsCounter.Add(context.Background(), 1, attrs)
	sortJobDuration.Record(context.Background(), elapsed.Seconds(), attrs)
	ll.Debug("Sort job exited", slog.String("status", status.String()))
}

// sortColumn runs inference, the streaming read and the sort. The
// cancellation checkpoints are: before inference, after every batch, and
// after sorting.
func (s *Sorter) sortColumn(ctx context.Context, provider dataset.Provider, o options) (result *sorting.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("sort job panicked: %v", r)
		}
	}()

	if ctx.Err() != nil {
		return nil, filereader.ErrTerminated
	}

	schema, err := filereader.InferSchema(ctx, provider, o.sampleRows)
	if err != nil {
		return nil, err
	}

	reader, err := filereader.NewColumnReader(provider, schema, s.columnIndex,
		filereader.WithBatchSize(o.batchSize),
		filereader.WithAllocator(o.mem),
		filereader.WithProgress(s.rowsRead.Store),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			logctx.FromContext(ctx).Warn("Failed to close column reader", slog.Any("error", cerr))
		}
	}()

	column, err := reader.ReadColumn(ctx)
	if err != nil {
		return nil, err
	}
	defer column.Release()

	result, err = sorting.Sort(column, s.order)
	if err != nil {
		return nil, fmt.Errorf("sort column %d: %w", s.columnIndex, err)
	}

	if ctx.Err() != nil {
		return nil, filereader.ErrTerminated
	}
	return result, nil
}
