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
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/colsort/internal/dataset"
)

func writeDataset(t *testing.T, content string, delimiter byte) *dataset.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	f, err := dataset.NewFile(path, delimiter)
	require.NoError(t, err)
	return f
}

func TestInferTypeFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected DataType
	}{
		{"", DataTypeUnknown},
		{"0", DataTypeInt64},
		{"-42", DataTypeInt64},
		{"3.14", DataTypeFloat64},
		{"1e6", DataTypeFloat64},
		{"true", DataTypeBool},
		{"FALSE", DataTypeBool},
		{"t", DataTypeString},
		{"hello", DataTypeString},
		{" 1", DataTypeString},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferTypeFromString(tt.input))
		})
	}
}

func TestPromoteType(t *testing.T) {
	assert.Equal(t, DataTypeFloat64, promoteType(DataTypeInt64, DataTypeFloat64))
	assert.Equal(t, DataTypeFloat64, promoteType(DataTypeFloat64, DataTypeInt64))
	assert.Equal(t, DataTypeString, promoteType(DataTypeInt64, DataTypeString))
	assert.Equal(t, DataTypeString, promoteType(DataTypeBool, DataTypeFloat64))
	assert.Equal(t, DataTypeBool, promoteType(DataTypeBool, DataTypeBool))
	assert.Equal(t, DataTypeInt64, promoteType(DataTypeUnknown, DataTypeInt64))
}

func TestInferSchema(t *testing.T) {
	ds := writeDataset(t, "id,score,name,active,empty\n1,1.5,x,true,\n2,,y,false,\n3,7,,true,\n", ',')

	schema, err := InferSchema(context.Background(), ds, DefaultSampleRows)
	require.NoError(t, err)
	require.Equal(t, 5, schema.NumColumns())

	expected := []DataType{DataTypeFloat64, DataTypeFloat64, DataTypeString, DataTypeBool, DataTypeString}
	for i, col := range schema.Columns() {
		assert.Equal(t, i, col.Index)
		assert.Equal(t, expected[i], col.DataType, "column %s", col.Name)
	}
	assert.False(t, schema.Columns()[4].HasNonNull)
	assert.Equal(t, DataTypeBool, schema.GetColumnType("active"))
	assert.Equal(t, DataTypeUnknown, schema.GetColumnType("missing"))

	arrowSchema := schema.ArrowSchema()
	require.Equal(t, 5, arrowSchema.NumFields())
	assert.Equal(t, "score", arrowSchema.Field(1).Name)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, arrowSchema.Field(1).Type))
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, arrowSchema.Field(4).Type))
}

func TestInferSchema_MixedTypesPromote(t *testing.T) {
	ds := writeDataset(t, "a;b\n1;true\nx;2\n", ';')

	schema, err := InferSchema(context.Background(), ds, 0)
	require.NoError(t, err)
	assert.Equal(t, DataTypeString, schema.GetColumnType("a"))
	assert.Equal(t, DataTypeString, schema.GetColumnType("b"))
}

func TestInferSchema_SampleLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("v\n")
	for i := 0; i < 10; i++ {
		sb.WriteString(strconv.Itoa(i) + "\n")
	}
	sb.WriteString("not-a-number\n")
	ds := writeDataset(t, sb.String(), ',')

	schema, err := InferSchema(context.Background(), ds, 10)
	require.NoError(t, err)
	assert.Equal(t, DataTypeFloat64, schema.GetColumnType("v"))

	schema, err = InferSchema(context.Background(), ds, 11)
	require.NoError(t, err)
	assert.Equal(t, DataTypeString, schema.GetColumnType("v"))
}

func TestInferSchema_HeaderPosition(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		headerEnd   int64
		sampledRows int
	}{
		{"header only", "a,b\n", 4, 0},
		{"header without newline", "a,b", 3, 0},
		{"blank lines", "a,b\n\n\n", 4, 0},
		{"crlf", "a,b\r\n1,2\r\n", 5, 1},
		{"quoted newline", "\"a\nb\",c\n1,2\n3,4\n", 8, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := writeDataset(t, tt.content, ',')
			schema, err := InferSchema(context.Background(), ds, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.headerEnd, schema.HeaderEnd())
			assert.Equal(t, tt.sampledRows, schema.SampledRows())
		})
	}
}

func TestPositionalHeader(t *testing.T) {
	header, names, err := positionalHeader(3, ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"col_0", "col_1", "col_2"}, names)
	assert.Equal(t, "col_0,col_1,col_2\n", string(header))

	header, _, err = positionalHeader(2, '_')
	require.NoError(t, err)
	assert.Equal(t, "\"col_0\"_\"col_1\"\n", string(header))
}

func TestInferSchema_Errors(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		ds := writeDataset(t, "", ',')
		_, err := InferSchema(context.Background(), ds, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInference)
		assert.ErrorIs(t, err, errNoHeader)
	})

	t.Run("missing file", func(t *testing.T) {
		ds, err := dataset.NewFile(filepath.Join(t.TempDir(), "nope.csv"), ',')
		require.NoError(t, err)
		_, err = InferSchema(context.Background(), ds, 0)
		var inferErr *InferenceError
		require.ErrorAs(t, err, &inferErr)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "cannot open dataset")
	})
}
