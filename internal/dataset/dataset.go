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

// Package dataset describes where a delimited-text dataset lives and how to
// open it. Every Open returns an independent handle, so schema sampling and
// column streaming never share a cursor.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Provider is the collaborator the sorter reads a dataset through.
type Provider interface {
	// Path identifies the dataset, usually a file path.
	Path() string
	// Delimiter is the one-byte field separator.
	Delimiter() byte
	// Open returns a new reader positioned at the start of the dataset.
	// Callers own the returned reader and must close it.
	Open() (io.ReadCloser, error)
}

// ErrInvalidDelimiter is returned when a delimiter cannot separate fields.
var ErrInvalidDelimiter = errors.New("invalid field delimiter")

// File is a Provider backed by a file on local disk.
type File struct {
	path      string
	delimiter byte
}

var _ Provider = (*File)(nil)

// NewFile returns a Provider for the file at path.
func NewFile(path string, delimiter byte) (*File, error) {
	if path == "" {
		return nil, errors.New("dataset path is empty")
	}
	if err := ValidateDelimiter(delimiter); err != nil {
		return nil, err
	}
	return &File{path: path, delimiter: delimiter}, nil
}

// ValidateDelimiter rejects bytes the CSV parser cannot use as a separator.
func ValidateDelimiter(delimiter byte) error {
	switch delimiter {
	case 0, '"', '\r', '\n':
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, delimiter)
	}
	if delimiter >= 0x80 {
		return fmt.Errorf("%w: %q is not ASCII", ErrInvalidDelimiter, delimiter)
	}
	return nil
}

// ParseDelimiter converts a user supplied delimiter such as "," or "\t".
func ParseDelimiter(s string) (byte, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	case "":
		return ',', nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q must be a single byte", ErrInvalidDelimiter, s)
	}
	if err := ValidateDelimiter(s[0]); err != nil {
		return 0, err
	}
	return s[0], nil
}

func (f *File) Path() string { return f.path }

func (f *File) Delimiter() byte { return f.delimiter }

func (f *File) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}
