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
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"github.com/cardinalhq/colsort/internal/dataset"
	"github.com/cardinalhq/colsort/internal/logctx"
)

// DefaultSampleRows is how many data rows InferSchema looks at.
const DefaultSampleRows = 1000

// InferTypeFromString attempts to parse a string and determine its type.
// Empty strings are read as nulls and carry no type information.
func InferTypeFromString(s string) DataType {
	if s == "" {
		return DataTypeUnknown
	}

	// Integers before bools so "1" and "0" stay numeric.
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return DataTypeInt64
	}

	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return DataTypeFloat64
	}

	switch s {
	case "true", "True", "TRUE", "false", "False", "FALSE":
		return DataTypeBool
	}

	return DataTypeString
}

// InferSchema samples up to maxRows data rows of the dataset and returns a
// permissive schema: integer columns are widened to float64 so that rows
// past the sample holding fractional values still parse.
func InferSchema(ctx context.Context, provider dataset.Provider, maxRows int) (*ReaderSchema, error) {
	if maxRows <= 0 {
		maxRows = DefaultSampleRows
	}

	f, err := provider.Open()
	if err != nil {
		return nil, &InferenceError{Path: provider.Path(), Reason: "cannot open dataset", Err: err}
	}
	defer func() { _ = f.Close() }()

	schema, sampled, err := sampleSchema(f, provider.Delimiter(), maxRows)
	if err != nil {
		return nil, &InferenceError{Path: provider.Path(), Reason: "sampling failed", Err: err}
	}

	schema.widenIntegers()
	schema.finalize()

	logctx.FromContext(ctx).Debug("Inferred dataset schema",
		"path", provider.Path(),
		"columns", schema.NumColumns(),
		"sampledRows", sampled)
	return schema, nil
}

var errNoHeader = errors.New("no header row")

func sampleSchema(r io.Reader, delimiter byte, maxRows int) (*ReaderSchema, int, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = rune(delimiter)
	csvReader.FieldsPerRecord = -1 // ragged rows are the parser's problem, not the sampler's
	csvReader.ReuseRecord = true

	headers, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, errNoHeader
		}
		return nil, 0, err
	}
	if len(headers) == 0 {
		return nil, 0, errNoHeader
	}
	schema := NewReaderSchema(append([]string(nil), headers...))
	schema.headerEnd = csvReader.InputOffset()

	sampled := 0
	for sampled < maxRows {
		record, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Malformed rows still count against the sample.
				sampled++
				continue
			}
			return nil, sampled, err
		}
		sampled++

		for i, value := range record {
			schema.Observe(i, InferTypeFromString(value))
		}
	}
	schema.sampledRows = sampled
	return schema, sampled, nil
}

// positionalHeader renders a header row naming n columns by position, so
// columns are addressed by index even when the dataset repeats a name.
func positionalHeader(n int, delimiter byte) ([]byte, []string, error) {
	names := make([]string, n)
	for i := range names {
		names[i] = positionalName(i)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = rune(delimiter)
	if err := w.Write(names); err != nil {
		return nil, nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), names, nil
}

func positionalName(index int) string {
	return "col_" + strconv.Itoa(index)
}
