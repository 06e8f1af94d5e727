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

// Package sorter runs single-column sorts of delimited-text datasets in the
// background and answers windowed queries against the result.
//
// A Sorter starts its worker as soon as it is created. Queries never wait
// for the worker: until the job has finished they report that no result is
// available. A job runs once and ends either Finished or Error; it is never
// restarted.
package sorter

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"github.com/cardinalhq/colsort/internal/dataset"
	"github.com/cardinalhq/colsort/internal/filereader"
	"github.com/cardinalhq/colsort/internal/logctx"
	"github.com/cardinalhq/colsort/internal/sorting"
)

type options struct {
	order      sorting.Order
	batchSize  int
	sampleRows int
	mem        memory.Allocator
}

// Option configures a Sorter.
type Option func(*options)

// WithOrder sets the sort direction. The default is ascending.
func WithOrder(order sorting.Order) Option {
	return func(o *options) { o.order = order }
}

// WithBatchSize sets how many rows are parsed between cancellation checks.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithSampleRows sets how many rows schema inference looks at.
func WithSampleRows(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sampleRows = n
		}
	}
}

// WithAllocator sets the Arrow allocator for column buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// Sorter is a handle on one background sort job. It is safe for
// concurrent use.
type Sorter struct {
	columnIndex int
	columnName  string
	order       sorting.Order
	jobID       string

	state    *state
	cancel   context.CancelFunc
	doneCh   chan struct{}
	rowsRead atomic.Int64
}

// New starts sorting the column at columnIndex of provider and returns
// immediately. Cancelling ctx has the same effect as RequestTermination.
func New(ctx context.Context, provider dataset.Provider, columnIndex int, columnName string, opts ...Option) *Sorter {
	o := options{
		order:      sorting.Ascending,
		batchSize:  filereader.DefaultBatchSize,
		sampleRows: filereader.DefaultSampleRows,
		mem:        memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(&o)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s := &Sorter{
		columnIndex: columnIndex,
		columnName:  columnName,
		order:       o.order,
		jobID:       uuid.NewString(),
		state:       &state{status: Status{State: StateRunning}},
		cancel:      cancel,
		doneCh:      make(chan struct{}),
	}

	jobCtx, _ = logctx.With(jobCtx,
		slog.String("jobID", s.jobID),
		slog.String("path", provider.Path()),
		slog.Int("column", columnIndex),
		slog.String("order", o.order.String()),
	)
	go s.run(jobCtx, provider, o)

	return s
}

// Status returns the current status without blocking on the worker.
func (s *Sorter) Status() Status {
	return s.state.snapshot()
}

// SortedIndices returns up to numRows original row indices in sorted order,
// starting at rank rowsFrom. The slice is shorter than numRows at the end
// of the data and empty when rowsFrom is past it. The bool is false until
// the job has finished, and stays false if it failed.
func (s *Sorter) SortedIndices(rowsFrom, numRows uint64) ([]uint64, bool) {
	return s.state.window(rowsFrom, numRows)
}

// RecordOrder returns the rank of the original row rowIndex. The bool is
// false until the job has finished or when rowIndex is out of range.
func (s *Sorter) RecordOrder(rowIndex uint64) (uint64, bool) {
	return s.state.rank(rowIndex)
}

// NumRows returns the number of data rows once the job has finished.
func (s *Sorter) NumRows() (uint64, bool) {
	return s.state.numRows()
}

func (s *Sorter) ColumnIndex() int { return s.columnIndex }

func (s *Sorter) ColumnName() string { return s.columnName }

func (s *Sorter) Order() sorting.Order { return s.order }

// JobID identifies this job in logs.
func (s *Sorter) JobID() string { return s.jobID }

// RowsRead returns how many rows the worker has streamed so far.
func (s *Sorter) RowsRead() int64 { return s.rowsRead.Load() }

// RequestTermination asks the worker to stop. The worker notices at its
// next batch boundary and ends with the status Error("Terminated"). Calling
// it more than once, or after the job has ended, has no further effect.
func (s *Sorter) RequestTermination() {
	s.state.requestTermination()
	s.cancel()
}

// TerminationRequested reports whether RequestTermination has been called.
func (s *Sorter) TerminationRequested() bool {
	return s.state.terminationRequested()
}

// Close releases the handle. It requests termination and returns without
// waiting for the worker to exit; use Wait for that. It always returns nil.
func (s *Sorter) Close() error {
	s.RequestTermination()
	return nil
}

// Done reports whether the worker has exited.
func (s *Sorter) Done() bool {
	return s.state.isDone()
}

// Wait blocks until the worker exits or ctx is done.
func (s *Sorter) Wait(ctx context.Context) error {
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
