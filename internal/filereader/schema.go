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
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// DataType represents the type of data in a column.
type DataType int

const (
	DataTypeUnknown DataType = iota // no non-empty value seen yet
	DataTypeString
	DataTypeInt64
	DataTypeFloat64
	DataTypeBool
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeUnknown:
		return "unknown"
	case DataTypeString:
		return "string"
	case DataTypeInt64:
		return "int64"
	case DataTypeFloat64:
		return "float64"
	case DataTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ArrowType returns the Arrow type the CSV reader should parse the column as.
// Unknown columns are read as strings.
func (dt DataType) ArrowType() arrow.DataType {
	switch dt {
	case DataTypeInt64:
		return arrow.PrimitiveTypes.Int64
	case DataTypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case DataTypeBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// ColumnSchema describes a single column in the schema.
type ColumnSchema struct {
	Index      int
	Name       string
	DataType   DataType
	HasNonNull bool
}

// ReaderSchema is the ordered set of columns found in a dataset header.
type ReaderSchema struct {
	columns     []*ColumnSchema
	byName      map[string][]int
	sampledRows int
	headerEnd   int64
}

// NewReaderSchema creates a schema with one untyped column per header name.
func NewReaderSchema(headers []string) *ReaderSchema {
	s := &ReaderSchema{
		columns: make([]*ColumnSchema, len(headers)),
		byName:  make(map[string][]int, len(headers)),
	}
	for i, name := range headers {
		s.columns[i] = &ColumnSchema{Index: i, Name: name}
		s.byName[name] = append(s.byName[name], i)
	}
	return s
}

// Observe folds one value's type into the column at index, promoting as needed.
func (s *ReaderSchema) Observe(index int, dataType DataType) {
	if index < 0 || index >= len(s.columns) {
		return
	}
	col := s.columns[index]
	if dataType == DataTypeUnknown {
		return
	}
	if !col.HasNonNull {
		col.DataType = dataType
		col.HasNonNull = true
		return
	}
	col.DataType = promoteType(col.DataType, dataType)
}

// NumColumns returns the number of columns in the header.
func (s *ReaderSchema) NumColumns() int {
	return len(s.columns)
}

// Column returns the column at index.
func (s *ReaderSchema) Column(index int) (*ColumnSchema, error) {
	if index < 0 || index >= len(s.columns) {
		return nil, fmt.Errorf("column index %d out of range, dataset has %d columns", index, len(s.columns))
	}
	return s.columns[index], nil
}

// SampledRows returns how many data rows inference looked at. Zero means
// the dataset holds nothing but its header.
func (s *ReaderSchema) SampledRows() int {
	return s.sampledRows
}

// HeaderEnd returns the byte offset at which the first data row starts.
func (s *ReaderSchema) HeaderEnd() int64 {
	return s.headerEnd
}

// GetColumnType returns the data type for a column name.
func (s *ReaderSchema) GetColumnType(name string) DataType {
	idx, ok := s.byName[name]
	if !ok {
		return DataTypeUnknown
	}
	return s.columns[idx[0]].DataType
}

// Columns returns all column schemas in header order.
func (s *ReaderSchema) Columns() []*ColumnSchema {
	result := make([]*ColumnSchema, len(s.columns))
	copy(result, s.columns)
	return result
}

// ArrowSchema returns the Arrow schema for the whole header. Columns that
// never held a value are nullable strings.
func (s *ReaderSchema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(s.columns))
	for i, col := range s.columns {
		fields[i] = arrow.Field{Name: col.Name, Type: col.DataType.ArrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// widenIntegers converts every int64 column to float64. A sample can see
// only integers in a column whose later rows hold fractions; float64 parses
// both.
func (s *ReaderSchema) widenIntegers() {
	for _, col := range s.columns {
		if col.DataType == DataTypeInt64 {
			col.DataType = DataTypeFloat64
		}
	}
}

// finalize gives untyped columns a concrete type.
func (s *ReaderSchema) finalize() {
	for _, col := range s.columns {
		if col.DataType == DataTypeUnknown {
			col.DataType = DataTypeString
		}
	}
}

// promoteType returns the promoted type when two types need to be merged.
//   - int64 + float64 → float64
//   - bool + int64/float64 → string
//   - string + anything → string
func promoteType(a, b DataType) DataType {
	if a == b {
		return a
	}
	if a == DataTypeUnknown {
		return b
	}
	if b == DataTypeUnknown {
		return a
	}

	if a == DataTypeString || b == DataTypeString {
		return DataTypeString
	}

	if (a == DataTypeFloat64 && b == DataTypeInt64) ||
		(a == DataTypeInt64 && b == DataTypeFloat64) {
		return DataTypeFloat64
	}

	return DataTypeString
}
