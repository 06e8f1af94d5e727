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

// Package filereader reads delimited-text datasets for sorting.
//
// InferSchema samples the head of a dataset and returns a permissive
// ReaderSchema. Integer columns are widened to float64 because a sample can
// miss the fractional values further down the file.
//
// ColumnReader streams one column of the dataset through the Apache Arrow
// CSV parser using the type the schema recorded for it:
//
//	schema, err := InferSchema(ctx, provider, DefaultSampleRows)
//	if err != nil {
//	    return err
//	}
//	reader, err := NewColumnReader(provider, schema, 3, WithBatchSize(4096))
//	if err != nil {
//	    return err
//	}
//	defer reader.Close()
//
//	column, err := reader.ReadColumn(ctx)
//	if err != nil {
//	    return err
//	}
//	defer column.Release()
//
// ReadColumn checks ctx once per batch. Cancellation takes effect at the next
// batch boundary and returns ErrTerminated; no partial column is returned.
package filereader
