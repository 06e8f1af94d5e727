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

package filereader

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/colsort/internal/dataset"
)

// DefaultBatchSize is the number of rows parsed per batch. A batch is also
// the cancellation granularity of ReadColumn.
const DefaultBatchSize = 8192

// ProgressFunc receives the running total of rows read after each batch.
type ProgressFunc func(rowsRead int64)

type columnReaderOptions struct {
	batchSize int
	mem       memory.Allocator
	progress  ProgressFunc
}

// ColumnReaderOption configures a ColumnReader.
type ColumnReaderOption func(*columnReaderOptions)

// WithBatchSize sets the number of rows per batch.
func WithBatchSize(n int) ColumnReaderOption {
	return func(o *columnReaderOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithAllocator sets the Arrow allocator used for column buffers.
func WithAllocator(mem memory.Allocator) ColumnReaderOption {
	return func(o *columnReaderOptions) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// WithProgress registers a callback invoked after every batch.
func WithProgress(fn ProgressFunc) ColumnReaderOption {
	return func(o *columnReaderOptions) {
		o.progress = fn
	}
}

// ColumnReader streams a single column of a delimited-text dataset as Arrow
// arrays. Only the projected column is materialized; the rest of each row is
// tokenized and dropped by the CSV parser.
type ColumnReader struct {
	path      string
	column    int
	dataType  arrow.DataType
	file      io.ReadCloser
	rdr       *csv.Reader
	mem       memory.Allocator
	progress  ProgressFunc
	rowCount  int64
	closed    bool
	exhausted bool
}

// NewColumnReader opens provider independently of any other reader and
// prepares to stream the column at columnIndex using schema's type for it.
// The column is selected by position; repeated header names are fine.
func NewColumnReader(provider dataset.Provider, schema *ReaderSchema, columnIndex int, opts ...ColumnReaderOption) (*ColumnReader, error) {
	o := columnReaderOptions{
		batchSize: DefaultBatchSize,
		mem:       memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(&o)
	}

	col, err := schema.Column(columnIndex)
	if err != nil {
		return nil, &ReadError{Path: provider.Path(), Column: columnIndex, Reason: "invalid projection", Err: err}
	}

	dataType := col.DataType.ArrowType()
	r := &ColumnReader{
		path:     provider.Path(),
		column:   columnIndex,
		dataType: dataType,
		mem:      o.mem,
		progress: o.progress,
	}

	// The Arrow CSV reader cannot build a record from a header alone.
	if schema.SampledRows() == 0 {
		r.exhausted = true
		return r, nil
	}

	header, names, err := positionalHeader(schema.NumColumns(), provider.Delimiter())
	if err != nil {
		return nil, &ReadError{Path: provider.Path(), Column: columnIndex, Reason: "cannot build header", Err: err}
	}

	f, err := provider.Open()
	if err != nil {
		return nil, &ReadError{Path: provider.Path(), Column: columnIndex, Reason: "cannot open dataset", Err: err}
	}
	if _, err := io.CopyN(io.Discard, f, schema.HeaderEnd()); err != nil {
		_ = f.Close()
		return nil, &ReadError{Path: provider.Path(), Column: columnIndex, Reason: "cannot skip header", Err: err}
	}

	name := names[columnIndex]
	r.file = f
	r.rdr = csv.NewInferringReader(io.MultiReader(bytes.NewReader(header), f),
		csv.WithComma(rune(provider.Delimiter())),
		csv.WithHeader(true),
		csv.WithChunk(o.batchSize),
		csv.WithAllocator(o.mem),
		csv.WithNullReader(true, ""),
		csv.WithColumnTypes(map[string]arrow.DataType{name: dataType}),
		csv.WithIncludeColumns([]string{name}),
	)
	return r, nil
}

// Next returns the next batch of the column. The caller owns the returned
// array and must Release it. Returns io.EOF when the dataset is exhausted.
func (r *ColumnReader) Next(ctx context.Context) (arrow.Array, error) {
	if r.closed {
		return nil, errors.New("reader is closed")
	}
	if r.exhausted {
		return nil, io.EOF
	}

	if !r.rdr.Next() {
		r.exhausted = true
		if err := r.rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, &ReadError{Path: r.path, Column: r.column, Reason: "parse failed", Err: err}
		}
		return nil, io.EOF
	}

	rec := r.rdr.Record()
	if rec.NumCols() != 1 {
		return nil, &ReadError{Path: r.path, Column: r.column, Reason: "projection returned the wrong number of columns"}
	}
	chunk := rec.Column(0)
	chunk.Retain()

	n := int64(chunk.Len())
	r.rowCount += n
	rowsReadCounter.Add(ctx, n, otelmetric.WithAttributes(
		attribute.String("reader", "ColumnReader"),
	))
	if r.progress != nil {
		r.progress(r.rowCount)
	}
	return chunk, nil
}

// ReadColumn consumes the remaining batches and returns them as one
// contiguous array. ctx is the cancellation token: it is checked after
// every batch, never mid-batch, and a cancelled ctx yields ErrTerminated
// with no partial result.
func (r *ColumnReader) ReadColumn(ctx context.Context) (arrow.Array, error) {
	var chunks []arrow.Array
	defer func() {
		for _, c := range chunks {
			c.Release()
		}
	}()

	for {
		chunk, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		chunks = append(chunks, chunk)

		if ctx.Err() != nil {
			return nil, ErrTerminated
		}
	}

	if len(chunks) == 0 {
		bldr := array.NewBuilder(r.mem, r.dataType)
		defer bldr.Release()
		return bldr.NewArray(), nil
	}

	combined, err := array.Concatenate(chunks, r.mem)
	if err != nil {
		return nil, &ReadError{Path: r.path, Column: r.column, Reason: "concatenate failed", Err: err}
	}
	return combined, nil
}

// TotalRowsReturned returns the number of rows read so far.
func (r *ColumnReader) TotalRowsReturned() int64 {
	return r.rowCount
}

// Close releases the parser and closes the dataset handle.
func (r *ColumnReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.rdr != nil {
		r.rdr.Release()
		r.rdr = nil
	}
	var err error
	if r.file != nil {
		err = r.file.Close()
		r.file = nil
	}
	return err
}
