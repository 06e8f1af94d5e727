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

package dataset

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFile(t *testing.T) {
	_, err := NewFile("", ',')
	assert.Error(t, err)

	_, err = NewFile("data.csv", '"')
	assert.True(t, errors.Is(err, ErrInvalidDelimiter))

	f, err := NewFile("data.csv", ';')
	require.NoError(t, err)
	assert.Equal(t, "data.csv", f.Path())
	assert.Equal(t, byte(';'), f.Delimiter())
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  byte
		expectErr bool
	}{
		{name: "default", input: "", expected: ','},
		{name: "comma", input: ",", expected: ','},
		{name: "pipe", input: "|", expected: '|'},
		{name: "escaped tab", input: `\t`, expected: '\t'},
		{name: "tab word", input: "tab", expected: '\t'},
		{name: "too long", input: ",,", expectErr: true},
		{name: "quote", input: `"`, expectErr: true},
		{name: "newline", input: "\n", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDelimiter(tt.input)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidDelimiter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFileOpenIsIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	f, err := NewFile(path, ',')
	require.NoError(t, err)

	first, err := f.Open()
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	buf := make([]byte, 2)
	_, err = io.ReadFull(first, buf)
	require.NoError(t, err)

	second, err := f.Open()
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	all, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(all))
}
