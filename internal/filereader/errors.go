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
	"errors"
	"fmt"
)

// ErrTerminated is returned when a read observes a cancellation request.
// Its message is what the sorter reports as the job's error status.
var ErrTerminated error = terminatedError{}

type terminatedError struct{}

func (terminatedError) Error() string { return "Terminated" }

// ErrInference and ErrRead are sentinels matched by InferenceError and
// ReadError through errors.Is.
var (
	ErrInference = errors.New("schema inference failed")
	ErrRead      = errors.New("column read failed")
)

// InferenceError reports that a dataset's schema could not be sampled.
type InferenceError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrInference, e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInference, e.Path, e.Reason)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// ReadError reports an I/O, parse or projection failure while streaming a column.
type ReadError struct {
	Path   string
	Column int
	Reason string
	Err    error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s column %d: %s: %v", ErrRead, e.Path, e.Column, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s column %d: %s", ErrRead, e.Path, e.Column, e.Reason)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrRead }
